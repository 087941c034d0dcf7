package models

import (
	"time"

	"github.com/google/uuid"
)

// AutomationState is the lifecycle state of an automation run.
type AutomationState string

const (
	AutomationIdle      AutomationState = "idle"
	AutomationRunning   AutomationState = "running"
	AutomationPaused    AutomationState = "paused"
	AutomationCompleted AutomationState = "completed"
	AutomationFailed    AutomationState = "failed"
)

// Terminal reports whether a run in this state has finished.
func (s AutomationState) Terminal() bool {
	return s == AutomationCompleted || s == AutomationFailed
}

// AutomationStatus is the aggregate progress snapshot of the current run.
// Each poll returns the latest snapshot; there are no delta semantics.
type AutomationStatus struct {
	Status          AutomationState `json:"status"`
	JobsTotal       int             `json:"jobsTotal"`
	JobsCompleted   int             `json:"jobsCompleted"`
	JobsFailed      int             `json:"jobsFailed"`
	CurrentJobID    *int64          `json:"currentJobId,omitempty"`
	CurrentJobTitle *string         `json:"currentJobTitle,omitempty"`
}

// LogType classifies an automation log line.
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
	LogSearch  LogType = "search"
)

// AutomationLog is one timestamped line of automation output. IDs increase
// monotonically within a run and are used by pollers as a watermark.
type AutomationLog struct {
	ID        int64     `json:"id"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LogsResponse is the body returned by GET /job-logs.
type LogsResponse struct {
	Logs []AutomationLog `json:"logs"`
}

// ControlAction is a user command sent to a running automation.
type ControlAction string

const (
	ControlStart  ControlAction = "start"
	ControlPause  ControlAction = "pause"
	ControlResume ControlAction = "resume"
	ControlStop   ControlAction = "stop"
	ControlSkip   ControlAction = "skip"
)

// ControlRequest is the body of POST /control.
type ControlRequest struct {
	Action   ControlAction `json:"action" validate:"required,oneof=start pause resume stop skip"`
	JobTitle string        `json:"jobTitle,omitempty" validate:"max=200"`
	JobID    *int64        `json:"jobId,omitempty"`
}

// StartAutomationRequest is the body of POST /start-automation.
type StartAutomationRequest struct {
	JobTitle string `json:"jobTitle" validate:"required,max=200"`
}

// AutomationRun is the persisted record of one automation run.
type AutomationRun struct {
	ID            uuid.UUID       `db:"id"             json:"id"`
	JobTitle      string          `db:"job_title"      json:"job_title"`
	Status        AutomationState `db:"status"         json:"status"`
	JobsTotal     int             `db:"jobs_total"     json:"jobs_total"`
	JobsCompleted int             `db:"jobs_completed" json:"jobs_completed"`
	JobsFailed    int             `db:"jobs_failed"    json:"jobs_failed"`
	StartedAt     time.Time       `db:"started_at"     json:"started_at"`
	FinishedAt    *time.Time      `db:"finished_at"    json:"finished_at,omitempty"`
}
