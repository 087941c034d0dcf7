package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// ErrNotTerminal is returned when the backend answers with a non-terminal status.
var ErrNotTerminal = errors.New("application did not reach a terminal status")

// JobApplier is the backend call RemoteApplier delegates to.
type JobApplier interface {
	ApplyJob(ctx context.Context, req models.ApplyRequest) (*models.ApplicationStatus, error)
}

// RemoteApplier asks the automation backend to apply and maps its answer.
type RemoteApplier struct {
	client    JobApplier
	candidate *models.CandidateData
}

func NewRemoteApplier(client JobApplier, candidate *models.CandidateData) *RemoteApplier {
	return &RemoteApplier{client: client, candidate: candidate}
}

func (a *RemoteApplier) Attempt(ctx context.Context, job models.JobSearchResult) (Outcome, error) {
	status, err := a.client.ApplyJob(ctx, models.ApplyRequest{JobID: job.ID, CandidateData: a.candidate})
	if err != nil {
		return Outcome{}, fmt.Errorf("applying to job %d: %w", job.ID, err)
	}

	switch status.Status {
	case models.ApplicationCompleted:
		return Outcome{Success: true}, nil
	case models.ApplicationFailed:
		msg := "Rejected by automation backend"
		if n := len(status.Logs); n > 0 {
			msg = status.Logs[n-1]
		}
		return Outcome{Message: msg}, nil
	default:
		return Outcome{}, fmt.Errorf("%w: job %d is %s", ErrNotTerminal, job.ID, status.Status)
	}
}

var _ Applier = (*RemoteApplier)(nil)
