package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// ErrAlreadyStarted is returned by Start on an orchestrator that has already run.
var ErrAlreadyStarted = errors.New("batch already started")

// applicationIDOffset derives a local application ID from a job ID.
const applicationIDOffset = 1000

// DefaultStageDelays are the waits before each of the four staged log lines.
var DefaultStageDelays = []time.Duration{
	500 * time.Millisecond,
	time.Second,
	time.Second,
	time.Second,
}

var stages = []func(job models.JobSearchResult) string{
	func(j models.JobSearchResult) string { return fmt.Sprintf("Opening job posting: %s...", j.Title) },
	func(models.JobSearchResult) string { return "Locating apply button..." },
	func(models.JobSearchResult) string { return "Filling application form..." },
	func(j models.JobSearchResult) string { return fmt.Sprintf("Submitting application for %s...", j.Title) },
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStageDelays overrides the per-stage delays. Missing entries are treated as zero.
func WithStageDelays(delays ...time.Duration) Option {
	return func(o *Orchestrator) {
		d := make([]time.Duration, len(stages))
		copy(d, delays)
		o.delays = d
	}
}

// WithLogger sets the logger used for unexpected failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// OnLog registers a callback invoked for every appended log line.
func OnLog(fn func(string)) Option {
	return func(o *Orchestrator) { o.onLog = fn }
}

// OnComplete registers a callback invoked once, with a copy of the results,
// after every job has reached a terminal status.
func OnComplete(fn func(map[int64]models.ApplicationStatus)) Option {
	return func(o *Orchestrator) { o.onComplete = fn }
}

// Orchestrator applies to a fixed list of jobs one at a time. Pause stops the
// loop before the next job; the job in flight always runs to its terminal status.
type Orchestrator struct {
	jobs       []models.JobSearchResult
	applier    Applier
	delays     []time.Duration
	logger     *slog.Logger
	onLog      func(string)
	onComplete func(map[int64]models.ApplicationStatus)
	now        func() time.Time

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	index     int
	started   bool
	paused    bool
	looping   bool
	finished  bool
	cancelled bool
	results   map[int64]models.ApplicationStatus
	logs      []string
	done      chan struct{}
}

// New returns an orchestrator over jobs. The job slice is copied.
func New(jobs []models.JobSearchResult, applier Applier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		jobs:    append([]models.JobSearchResult(nil), jobs...),
		applier: applier,
		delays:  DefaultStageDelays,
		logger:  slog.Default(),
		now:     time.Now,
		results: make(map[int64]models.ApplicationStatus, len(jobs)),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins processing at the first job and returns immediately.
// Starting an empty batch does nothing and closes Done.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyStarted
	}
	o.started = true
	if len(o.jobs) == 0 {
		o.finished = true
		close(o.done)
		o.mu.Unlock()
		return nil
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
	o.looping = true
	o.mu.Unlock()

	o.log(fmt.Sprintf("Starting batch application for %d jobs...", len(o.jobs)))
	go o.loop()
	return nil
}

// Pause stops the loop before the next job. It reports whether the state changed.
func (o *Orchestrator) Pause() bool {
	o.mu.Lock()
	ok := o.pauseLocked()
	o.mu.Unlock()
	if ok {
		o.log("Pausing application process...")
	}
	return ok
}

// Resume continues from the current job. It reports whether the state changed.
func (o *Orchestrator) Resume() bool {
	o.mu.Lock()
	ok, spawn := o.resumeLocked()
	o.mu.Unlock()
	if ok {
		o.log("Resuming application process...")
	}
	if spawn {
		go o.loop()
	}
	return ok
}

// TogglePause pauses a running batch or resumes a paused one and reports
// whether the batch is now paused.
func (o *Orchestrator) TogglePause() bool {
	o.mu.Lock()
	var msg string
	var spawn bool
	if o.paused {
		if ok, s := o.resumeLocked(); ok {
			msg, spawn = "Resuming application process...", s
		}
	} else if o.pauseLocked() {
		msg = "Pausing application process..."
	}
	paused := o.paused
	o.mu.Unlock()

	if msg != "" {
		o.log(msg)
	}
	if spawn {
		go o.loop()
	}
	return paused
}

func (o *Orchestrator) pauseLocked() bool {
	if !o.started || o.finished || o.cancelled || o.paused {
		return false
	}
	o.paused = true
	return true
}

// resumeLocked clears the paused flag and reports whether a new loop
// goroutine is needed. A loop still finishing its job just keeps going.
func (o *Orchestrator) resumeLocked() (ok, spawn bool) {
	if !o.paused || o.finished || o.cancelled {
		return false, false
	}
	o.paused = false
	if !o.looping {
		o.looping = true
		spawn = true
	}
	return true, spawn
}

// Cancel stops the batch. The job in flight is recorded as failed, the
// remaining jobs get no status and the completion callback is not invoked.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if !o.started || o.finished || o.cancelled {
		o.mu.Unlock()
		return
	}
	o.cancelled = true
	o.cancel()
	if !o.looping {
		close(o.done)
	}
	o.mu.Unlock()

	o.log("Batch application cancelled")
}

// Done is closed when the batch completes or is cancelled.
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// Paused reports whether the batch is paused.
func (o *Orchestrator) Paused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

// Progress returns the number of jobs already processed and the batch size.
func (o *Orchestrator) Progress() (processed, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.index, len(o.jobs)
}

// Results returns a copy of the terminal statuses recorded so far.
func (o *Orchestrator) Results() map[int64]models.ApplicationStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.resultsLocked()
}

// Logs returns a copy of the batch log.
func (o *Orchestrator) Logs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.logs...)
}

// ClearLogs empties the batch log. Recorded results keep their own lines.
func (o *Orchestrator) ClearLogs() {
	o.mu.Lock()
	o.logs = nil
	o.mu.Unlock()
}

func (o *Orchestrator) resultsLocked() map[int64]models.ApplicationStatus {
	out := make(map[int64]models.ApplicationStatus, len(o.results))
	for k, v := range o.results {
		v.Logs = append([]string(nil), v.Logs...)
		out[k] = v
	}
	return out
}

func (o *Orchestrator) log(msg string) {
	o.mu.Lock()
	o.logs = append(o.logs, msg)
	o.mu.Unlock()
	if o.onLog != nil {
		o.onLog(msg)
	}
}

func (o *Orchestrator) loop() {
	for {
		o.mu.Lock()
		ctx := o.ctx
		switch {
		case ctx.Err() != nil:
			o.looping = false
			o.cancelled = true
			close(o.done)
			o.mu.Unlock()
			return
		case o.index >= len(o.jobs):
			o.looping = false
			o.finished = true
			results := o.resultsLocked()
			o.mu.Unlock()
			o.complete(results)
			return
		case o.paused:
			o.looping = false
			o.mu.Unlock()
			o.log("Application process paused. Click resume to continue.")
			return
		}
		idx, job := o.index, o.jobs[o.index]
		o.mu.Unlock()

		status := o.process(ctx, idx, job)

		o.mu.Lock()
		o.results[job.ID] = status
		o.index++
		o.mu.Unlock()
	}
}

func (o *Orchestrator) complete(results map[int64]models.ApplicationStatus) {
	var succeeded, failed int
	for _, r := range results {
		if r.Status == models.ApplicationCompleted {
			succeeded++
		} else {
			failed++
		}
	}
	o.log(fmt.Sprintf("Batch application completed: %d succeeded, %d failed", succeeded, failed))

	if o.onComplete != nil {
		o.onComplete(results)
	}
	close(o.done)
}

// process runs the staged sequence for one job and returns its terminal status.
func (o *Orchestrator) process(ctx context.Context, idx int, job models.JobSearchResult) (status models.ApplicationStatus) {
	var lines []string
	emit := func(msg string) {
		lines = append(lines, msg)
		o.log(msg)
	}
	finish := func(state models.ApplicationState) models.ApplicationStatus {
		return models.ApplicationStatus{
			ID:        job.ID + applicationIDOffset,
			JobID:     job.ID,
			Status:    state,
			Logs:      lines,
			Timestamp: o.now().UTC(),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic during application attempt", "job_id", job.ID, "panic", r)
			emit(fmt.Sprintf("Error applying to %s: %v", job.Title, r))
			status = finish(models.ApplicationFailed)
		}
	}()

	emit(fmt.Sprintf("Processing job %d/%d: %s at %s", idx+1, len(o.jobs), job.Title, job.Company))

	for i, stage := range stages {
		if err := sleep(ctx, o.delays[i]); err != nil {
			emit(fmt.Sprintf("Application to %s cancelled", job.Title))
			return finish(models.ApplicationFailed)
		}
		emit(stage(job))
	}

	outcome, err := o.applier.Attempt(ctx, job)
	switch {
	case err != nil && ctx.Err() != nil:
		emit(fmt.Sprintf("Application to %s cancelled", job.Title))
		return finish(models.ApplicationFailed)
	case err != nil:
		o.logger.Warn("application attempt failed", "job_id", job.ID, "error", err)
		emit(fmt.Sprintf("Error applying to %s: %v", job.Title, err))
		return finish(models.ApplicationFailed)
	case outcome.Success:
		emit(fmt.Sprintf("Successfully applied to %s at %s", job.Title, job.Company))
		return finish(models.ApplicationCompleted)
	default:
		reason := outcome.Message
		if reason == "" {
			reason = "Application form error"
		}
		emit(fmt.Sprintf("Failed to apply to %s at %s - %s", job.Title, job.Company, reason))
		return finish(models.ApplicationFailed)
	}
}

// sleep waits for d or until ctx is done. The context is checked first so a
// cancelled batch never emits another stage, even with zero delays.
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
