// Package runner owns the server-side automation run behind the control endpoints.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/jobpilot/internal/batch"
	"github.com/kiranshivaraju/jobpilot/internal/cache"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

var (
	ErrRunActive        = errors.New("automation run already active")
	ErrNoActiveRun      = errors.New("no active automation run")
	ErrInvalidAction    = errors.New("invalid control action")
	ErrJobTitleRequired = errors.New("job title is required")
)

// RunStore is the persistence the runner needs.
type RunStore interface {
	SearchJobs(ctx context.Context, filter store.JobFilter) ([]models.JobSearchResult, error)
	CreateRun(ctx context.Context, run *models.AutomationRun) error
	UpdateRun(ctx context.Context, run *models.AutomationRun) error
	AppendRunLog(ctx context.Context, runID uuid.UUID, typ models.LogType, message string) (*models.AutomationLog, error)
	ListRunLogs(ctx context.Context, runID uuid.UUID, afterID int64) ([]models.AutomationLog, error)
}

// Config holds the runner's pacing and limits.
type Config struct {
	StageDelay  time.Duration
	JobDelay    time.Duration
	StatusTTL   time.Duration
	SearchLimit int
}

// Runner executes at most one automation run at a time.
type Runner struct {
	store   RunStore
	kv      cache.Cache
	applier batch.Applier
	cfg     Config
	logger  *slog.Logger

	mu  sync.Mutex
	run *run
}

// run is the in-process state of one automation run. Fields below mu are
// guarded by Runner.mu.
type run struct {
	id        uuid.UUID
	title     string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	status  models.AutomationStatus
	resume  chan struct{} // non-nil while paused
	skip    bool
	stopped bool
}

func (rn *run) active() bool {
	select {
	case <-rn.done:
		return false
	default:
		return true
	}
}

func New(s RunStore, kv cache.Cache, applier batch.Applier, cfg Config, logger *slog.Logger) *Runner {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: s, kv: kv, applier: applier, cfg: cfg, logger: logger}
}

// Start begins a new run for jobTitle and returns the initial snapshot.
func (r *Runner) Start(ctx context.Context, jobTitle string) (*models.AutomationStatus, error) {
	if jobTitle == "" {
		return nil, ErrJobTitleRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.run != nil && r.run.active() {
		return nil, ErrRunActive
	}

	now := time.Now().UTC()
	rec := &models.AutomationRun{
		ID:        uuid.New(),
		JobTitle:  jobTitle,
		Status:    models.AutomationRunning,
		StartedAt: now,
	}
	if err := r.store.CreateRun(ctx, rec); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rn := &run{
		id:        rec.ID,
		title:     jobTitle,
		startedAt: now,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    models.AutomationStatus{Status: models.AutomationRunning},
	}
	r.run = rn
	snapshot := rn.status

	go r.execute(runCtx, rn)

	r.logger.Info("automation run started", "run_id", rn.id, "job_title", jobTitle)
	return &snapshot, nil
}

// Control applies a user command to the current run and returns the resulting snapshot.
func (r *Runner) Control(ctx context.Context, req models.ControlRequest) (*models.AutomationStatus, error) {
	if req.Action == models.ControlStart {
		return r.Start(ctx, req.JobTitle)
	}

	r.mu.Lock()
	rn := r.run
	if rn == nil || !rn.active() {
		r.mu.Unlock()
		if !validAction(req.Action) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
		}
		return nil, ErrNoActiveRun
	}

	var logType models.LogType
	var msg string
	switch req.Action {
	case models.ControlPause:
		if rn.status.Status == models.AutomationRunning {
			rn.status.Status = models.AutomationPaused
			rn.resume = make(chan struct{})
			logType, msg = models.LogInfo, "Automation paused by user"
		}
	case models.ControlResume:
		if rn.resume != nil {
			close(rn.resume)
			rn.resume = nil
			rn.status.Status = models.AutomationRunning
			logType, msg = models.LogInfo, "Automation resumed by user"
		}
	case models.ControlStop:
		if !rn.stopped {
			rn.stopped = true
			rn.status.Status = models.AutomationCompleted
			if rn.resume != nil {
				close(rn.resume)
				rn.resume = nil
			}
			rn.cancel()
			logType, msg = models.LogInfo, "Automation stopped by user"
		}
	case models.ControlSkip:
		rn.skip = true
		logType, msg = models.LogWarning, "Skip requested by user"
	default:
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, req.Action)
	}
	snapshot := rn.status
	r.mu.Unlock()

	if msg != "" {
		r.log(ctx, rn, logType, msg)
		r.publish(ctx, snapshot)
	}
	return &snapshot, nil
}

func validAction(a models.ControlAction) bool {
	switch a {
	case models.ControlStart, models.ControlPause, models.ControlResume, models.ControlStop, models.ControlSkip:
		return true
	}
	return false
}

// Status returns the current run's snapshot. With no run in this process it
// falls back to the last published snapshot, then to idle.
func (r *Runner) Status(ctx context.Context) (*models.AutomationStatus, error) {
	r.mu.Lock()
	rn := r.run
	var snapshot models.AutomationStatus
	if rn != nil {
		snapshot = rn.status
	}
	r.mu.Unlock()

	if rn != nil {
		return &snapshot, nil
	}

	if r.kv != nil {
		status, found, err := r.kv.GetAutomationStatus(ctx)
		if err != nil {
			r.logger.Warn("failed to read published automation status", "error", err)
		} else if found {
			return status, nil
		}
	}
	return &models.AutomationStatus{Status: models.AutomationIdle}, nil
}

// Logs returns every log line of the current run in id order.
func (r *Runner) Logs(ctx context.Context) ([]models.AutomationLog, error) {
	r.mu.Lock()
	rn := r.run
	r.mu.Unlock()

	if rn == nil {
		return []models.AutomationLog{}, nil
	}
	logs, err := r.store.ListRunLogs(ctx, rn.id, 0)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	return logs, nil
}

// Wait blocks until the current run's loop has exited or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	rn := r.run
	r.mu.Unlock()
	if rn == nil {
		return nil
	}
	select {
	case <-rn.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the current run, if any, and waits for it to exit.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	rn := r.run
	r.mu.Unlock()
	if rn == nil || !rn.active() {
		return nil
	}
	if _, err := r.Control(ctx, models.ControlRequest{Action: models.ControlStop}); err != nil && !errors.Is(err, ErrNoActiveRun) {
		return err
	}
	return r.Wait(ctx)
}
