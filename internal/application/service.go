// Package application applies to catalog jobs on behalf of API callers.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/batch"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"golang.org/x/sync/errgroup"
)

// ErrJobNotFound is returned when an application targets a job not in the catalog.
var ErrJobNotFound = errors.New("job not found")

// Store is the persistence the service needs.
type Store interface {
	GetJobsByIDs(ctx context.Context, ids []int64) ([]models.JobSearchResult, error)
	CreateApplication(ctx context.Context, jobID int64, candidate *models.CandidateData) (*models.ApplicationStatus, error)
	GetApplication(ctx context.Context, id int64) (*models.ApplicationStatus, error)
	UpdateApplicationStatus(ctx context.Context, id int64, status models.ApplicationState, opts ...store.ApplicationUpdateOption) error
}

// Service records each attempt as pending, then in-progress, then terminal.
type Service struct {
	store       Store
	applier     batch.Applier
	stageDelay  time.Duration
	concurrency int
	logger      *slog.Logger
}

func NewService(s Store, applier batch.Applier, stageDelay time.Duration, concurrency int, logger *slog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, applier: applier, stageDelay: stageDelay, concurrency: concurrency, logger: logger}
}

// Apply applies to one job and returns the terminal record.
func (s *Service) Apply(ctx context.Context, req models.ApplyRequest) (*models.ApplicationStatus, error) {
	jobs, err := s.store.GetJobsByIDs(ctx, []int64{req.JobID})
	if err != nil {
		return nil, fmt.Errorf("look up job: %w", err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrJobNotFound, req.JobID)
	}
	return s.apply(ctx, jobs[0], req.CandidateData)
}

// ApplyMultiple applies to every job with bounded concurrency. Results are in
// request order. One failed attempt does not stop the others; only a store
// error or an unknown job aborts the call.
func (s *Service) ApplyMultiple(ctx context.Context, req models.ApplyMultipleRequest) ([]models.ApplicationStatus, error) {
	jobs, err := s.store.GetJobsByIDs(ctx, req.JobIDs)
	if err != nil {
		return nil, fmt.Errorf("look up jobs: %w", err)
	}
	byID := make(map[int64]models.JobSearchResult, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	for _, id := range req.JobIDs {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: %d", ErrJobNotFound, id)
		}
	}

	results := make([]models.ApplicationStatus, len(req.JobIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, id := range req.JobIDs {
		job := byID[id]
		g.Go(func() error {
			status, err := s.apply(gctx, job, req.CandidateData)
			if err != nil {
				return err
			}
			results[i] = *status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Get returns a stored application.
func (s *Service) Get(ctx context.Context, id int64) (*models.ApplicationStatus, error) {
	return s.store.GetApplication(ctx, id)
}

func (s *Service) apply(ctx context.Context, job models.JobSearchResult, candidate *models.CandidateData) (*models.ApplicationStatus, error) {
	app, err := s.store.CreateApplication(ctx, job.ID, candidate)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrJobNotFound, job.ID)
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	if err := s.store.UpdateApplicationStatus(ctx, app.ID, models.ApplicationInProgress); err != nil {
		return nil, fmt.Errorf("start application: %w", err)
	}

	logs, state := s.attempt(ctx, job)

	// Always record the terminal state, even if the caller went away.
	persist := context.WithoutCancel(ctx)
	if err := s.store.UpdateApplicationStatus(persist, app.ID, state, store.WithLogs(logs)); err != nil {
		return nil, fmt.Errorf("finish application: %w", err)
	}
	s.logger.Info("application finished", "application_id", app.ID, "job_id", job.ID, "status", state)

	return s.store.GetApplication(persist, app.ID)
}

// attempt runs the staged sequence and never returns an error: every failure
// becomes a failed status with an explanatory line.
func (s *Service) attempt(ctx context.Context, job models.JobSearchResult) (logs []string, state models.ApplicationState) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during application attempt", "job_id", job.ID, "panic", r)
			logs = append(logs, fmt.Sprintf("Error: %v", r))
			state = models.ApplicationFailed
		}
	}()

	stages := []string{
		fmt.Sprintf("Opening job posting: %s at %s", job.Title, job.Company),
		"Locating apply button...",
		"Filling application form...",
		"Submitting application...",
	}
	for _, line := range stages {
		if err := sleep(ctx, s.stageDelay); err != nil {
			return append(logs, "Application cancelled"), models.ApplicationFailed
		}
		logs = append(logs, line)
	}

	outcome, err := s.applier.Attempt(ctx, job)
	switch {
	case err != nil:
		s.logger.Warn("application attempt failed", "job_id", job.ID, "error", err)
		return append(logs, fmt.Sprintf("Error: %v", err)), models.ApplicationFailed
	case outcome.Success:
		return append(logs, fmt.Sprintf("Successfully applied to %s at %s", job.Title, job.Company)), models.ApplicationCompleted
	default:
		reason := outcome.Message
		if reason == "" {
			reason = "Application form error"
		}
		return append(logs, fmt.Sprintf("Failed to apply: %s", reason)), models.ApplicationFailed
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
