package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	SearchJobs(ctx context.Context, filter JobFilter) ([]models.JobSearchResult, error)
	GetJobsByIDs(ctx context.Context, ids []int64) ([]models.JobSearchResult, error)

	CreateApplication(ctx context.Context, jobID int64, candidate *models.CandidateData) (*models.ApplicationStatus, error)
	GetApplication(ctx context.Context, id int64) (*models.ApplicationStatus, error)
	UpdateApplicationStatus(ctx context.Context, id int64, status models.ApplicationState, opts ...ApplicationUpdateOption) error

	CreateRun(ctx context.Context, run *models.AutomationRun) error
	UpdateRun(ctx context.Context, run *models.AutomationRun) error
	AppendRunLog(ctx context.Context, runID uuid.UUID, typ models.LogType, message string) (*models.AutomationLog, error)
	ListRunLogs(ctx context.Context, runID uuid.UUID, afterID int64) ([]models.AutomationLog, error)
}

// JobFilter narrows a job catalog search. Title matches case-insensitively
// anywhere in the posting title.
type JobFilter struct {
	Title string
	Limit int
}

// ApplicationUpdate collects the optional fields of a status update.
type ApplicationUpdate struct {
	Logs []string
}

type ApplicationUpdateOption func(*ApplicationUpdate)

// WithLogs replaces the application's log lines.
func WithLogs(logs []string) ApplicationUpdateOption {
	return func(p *ApplicationUpdate) {
		p.Logs = logs
	}
}

// NewApplicationUpdate applies opts to an empty update.
func NewApplicationUpdate(opts ...ApplicationUpdateOption) ApplicationUpdate {
	var u ApplicationUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}
