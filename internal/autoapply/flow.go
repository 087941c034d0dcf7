// Package autoapply runs a single-job application with staged progress logs.
package autoapply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

const (
	// MaxLogLines caps the staged progress sequence.
	MaxLogLines = 6
	// DefaultInterval is the delay between staged lines.
	DefaultInterval = 1500 * time.Millisecond

	CompletedLine = "Application completed successfully!"
	ErrorLine     = "Error: Application failed. Please try again."
)

// ErrApplicationFailed is returned when the backend answers with a failed status.
var ErrApplicationFailed = errors.New("application failed")

var stagedLines = [MaxLogLines]string{
	"Starting application process...",
	"Opening job posting...",
	"Locating apply button...",
	"Filling application form...",
	"Submitting application...",
	CompletedLine,
}

// JobApplier is the backend call the flow wraps.
type JobApplier interface {
	ApplyJob(ctx context.Context, req models.ApplyRequest) (*models.ApplicationStatus, error)
}

// Config configures a Flow.
type Config struct {
	Interval  time.Duration
	Candidate *models.CandidateData
	// OnLog receives each progress line as it is appended.
	OnLog func(string)
	// OnSuccess receives the backend status after a successful application.
	OnSuccess func(jobID int64, status models.ApplicationStatus)
	Logger    *slog.Logger
}

// Result is what one Apply call produced.
type Result struct {
	Status *models.ApplicationStatus
	Logs   []string
}

// Flow applies to one job at a time while emitting progress lines.
type Flow struct {
	client JobApplier
	cfg    Config
}

func New(client JobApplier, cfg Config) *Flow {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Flow{client: client, cfg: cfg}
}

// Apply issues one apply request. Progress lines are emitted on a ticker while
// the request is outstanding; the ticker is joined before the final line is
// written, so nothing lands after it. Failures are not retried.
func (f *Flow) Apply(ctx context.Context, job models.JobSearchResult) (*Result, error) {
	l := &lineLog{onLog: f.cfg.OnLog}
	l.add(stagedLines[0])

	tickCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.stage(tickCtx, l)
	}()

	status, err := f.client.ApplyJob(ctx, models.ApplyRequest{JobID: job.ID, CandidateData: f.cfg.Candidate})
	stop()
	wg.Wait()

	if err == nil && status.Status == models.ApplicationFailed {
		err = ErrApplicationFailed
	}
	if err != nil {
		f.cfg.Logger.Warn("auto-apply failed", "job_id", job.ID, "error", err)
		l.add(ErrorLine)
		return &Result{Status: status, Logs: l.lines}, fmt.Errorf("applying to %s at %s: %w", job.Title, job.Company, err)
	}

	if len(l.lines) < MaxLogLines {
		l.add(CompletedLine)
	}
	if f.cfg.OnSuccess != nil {
		f.cfg.OnSuccess(job.ID, *status)
	}
	return &Result{Status: status, Logs: l.lines}, nil
}

func (f *Flow) stage(ctx context.Context, l *lineLog) {
	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for n := 1; n < MaxLogLines; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// The request may have finished while the tick was pending.
			if ctx.Err() != nil {
				return
			}
			l.add(stagedLines[n])
		}
	}
}

// lineLog is written by the ticker goroutine and then, after it is joined,
// by Apply. The two never overlap.
type lineLog struct {
	lines []string
	onLog func(string)
}

func (l *lineLog) add(s string) {
	l.lines = append(l.lines, s)
	if l.onLog != nil {
		l.onLog(s)
	}
}
