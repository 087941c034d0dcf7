package models

import "time"

// ApplicationState is the lifecycle state of a single application attempt.
type ApplicationState string

const (
	ApplicationPending    ApplicationState = "pending"
	ApplicationInProgress ApplicationState = "in-progress"
	ApplicationCompleted  ApplicationState = "completed"
	ApplicationFailed     ApplicationState = "failed"
)

// Terminal reports whether the state will not change any further.
func (s ApplicationState) Terminal() bool {
	return s == ApplicationCompleted || s == ApplicationFailed
}

// ApplicationStatus is the outcome record of one application attempt.
// Once Status is terminal the record is never mutated.
type ApplicationStatus struct {
	ID        int64            `json:"id"`
	JobID     int64            `json:"jobId"`
	Status    ApplicationState `json:"status"`
	Logs      []string         `json:"logs"`
	Timestamp time.Time        `json:"timestamp"`
}

// CandidateData is the applicant profile submitted alongside an application.
type CandidateData struct {
	FullName   string `json:"full_name,omitempty" validate:"max=200"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty" validate:"max=40"`
	ResumePath string `json:"resume_path,omitempty"`
}

// ApplyRequest is the body of POST /apply-job.
type ApplyRequest struct {
	JobID         int64          `json:"jobId" validate:"required,gt=0"`
	CandidateData *CandidateData `json:"candidateData,omitempty"`
}

// ApplyMultipleRequest is the body of POST /apply-multiple.
type ApplyMultipleRequest struct {
	JobIDs        []int64        `json:"jobIds" validate:"required,min=1,max=50,dive,gt=0"`
	CandidateData *CandidateData `json:"candidateData,omitempty"`
}

// ApplyMultipleResponse is returned by POST /apply-multiple, in request order.
type ApplyMultipleResponse struct {
	Applications []ApplicationStatus `json:"applications"`
}

// UploadResult is returned by POST /upload-cv.
type UploadResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
}
