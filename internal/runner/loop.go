package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/batch"
	"github.com/kiranshivaraju/jobpilot/internal/cache"
	"github.com/kiranshivaraju/jobpilot/internal/store"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// execute is the run's background loop. ctx is cancelled by stop; persistence
// uses a detached context so the final state is always written.
func (r *Runner) execute(ctx context.Context, rn *run) {
	persist := context.WithoutCancel(ctx)
	defer close(rn.done)
	defer rn.cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in automation run", "run_id", rn.id, "panic", rec)
			r.log(persist, rn, models.LogError, fmt.Sprintf("Automation error: %v", rec))
			r.finish(persist, rn, models.AutomationFailed)
		}
	}()

	r.publish(persist, r.snapshot(rn))

	if err := r.search(ctx, persist, rn); err != nil {
		r.logger.Error("automation run failed", "run_id", rn.id, "error", err)
		r.log(persist, rn, models.LogError, fmt.Sprintf("Automation error: %v", err))
		r.finish(persist, rn, models.AutomationFailed)
		return
	}

	r.finish(persist, rn, models.AutomationCompleted)
}

func (r *Runner) search(ctx, persist context.Context, rn *run) error {
	r.log(persist, rn, models.LogInfo, fmt.Sprintf("Starting automated job search for '%s' positions", rn.title))
	if path := r.resumePath(persist); path != "" {
		r.log(persist, rn, models.LogInfo, fmt.Sprintf("Using uploaded resume %s", path))
	}

	r.log(persist, rn, models.LogInfo, "Launching browser session...")
	if sleep(ctx, r.cfg.StageDelay) != nil {
		return nil
	}
	r.log(persist, rn, models.LogSearch, "Navigating to job listings...")
	r.log(persist, rn, models.LogInfo, fmt.Sprintf("Searching for '%s' positions...", rn.title))

	jobs, err := r.store.SearchJobs(ctx, store.JobFilter{Title: rn.title, Limit: r.cfg.SearchLimit})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("search jobs: %w", err)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no job links found for '%s'", rn.title)
	}
	r.log(persist, rn, models.LogSuccess, "Search completed. Found job listings.")

	r.mu.Lock()
	rn.status.JobsTotal = len(jobs)
	snapshot := rn.status
	r.mu.Unlock()
	r.publish(persist, snapshot)
	r.log(persist, rn, models.LogInfo, fmt.Sprintf("Found %d jobs to apply for", len(jobs)))

	for _, job := range jobs {
		if r.isStopped(rn) {
			break
		}
		if r.waitIfPaused(ctx, persist, rn) {
			break
		}
		if r.takeSkip(rn) {
			r.log(persist, rn, models.LogWarning, fmt.Sprintf("Skipping %s at %s as requested", job.Title, job.Company))
			r.count(persist, rn, false)
			continue
		}

		r.apply(ctx, persist, rn, job)

		if sleep(ctx, r.cfg.JobDelay) != nil {
			break
		}
	}
	return nil
}

// apply runs the staged sequence for one job and counts the outcome.
func (r *Runner) apply(ctx, persist context.Context, rn *run, job models.JobSearchResult) {
	id, title := job.ID, job.Title
	r.mu.Lock()
	rn.status.CurrentJobID = &id
	rn.status.CurrentJobTitle = &title
	snapshot := rn.status
	r.mu.Unlock()
	r.publish(persist, snapshot)

	r.log(persist, rn, models.LogInfo, fmt.Sprintf("Applying to: %s", job.Link))
	r.log(persist, rn, models.LogInfo, fmt.Sprintf("Job title: %s at %s", job.Title, job.Company))
	r.log(persist, rn, models.LogInfo, "Loading job page...")
	if sleep(ctx, r.cfg.StageDelay) != nil {
		r.interrupted(persist, rn, job)
		return
	}
	r.log(persist, rn, models.LogInfo, "Checking application options...")
	r.log(persist, rn, models.LogSearch, "Searching for 'Apply' button...")
	if sleep(ctx, r.cfg.StageDelay/2) != nil {
		r.interrupted(persist, rn, job)
		return
	}

	outcome, err := r.applier.Attempt(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			r.interrupted(persist, rn, job)
			return
		}
		r.logger.Warn("application attempt failed", "run_id", rn.id, "job_id", job.ID, "error", err)
		outcome = batch.Outcome{Message: err.Error()}
	}

	if !outcome.Success {
		reason := outcome.Message
		if reason == "" {
			reason = "No Apply button found or application form error"
		}
		r.log(persist, rn, models.LogError, reason)
		r.log(persist, rn, models.LogError, fmt.Sprintf("Failed to apply to \"%s\"", job.Title))
		r.count(persist, rn, false)
		return
	}

	if outcome.Message != "" {
		r.log(persist, rn, models.LogSuccess, outcome.Message)
	}
	r.log(persist, rn, models.LogInfo, "Filling application form...")
	if sleep(ctx, r.cfg.StageDelay) != nil {
		r.interrupted(persist, rn, job)
		return
	}
	r.log(persist, rn, models.LogSuccess, "Filled personal information")
	r.log(persist, rn, models.LogSuccess, fmt.Sprintf("Successfully applied to \"%s\"", job.Title))
	r.count(persist, rn, true)
}

func (r *Runner) interrupted(persist context.Context, rn *run, job models.JobSearchResult) {
	r.log(persist, rn, models.LogWarning, fmt.Sprintf("Application to \"%s\" interrupted", job.Title))
	r.count(persist, rn, false)
}

func (r *Runner) count(persist context.Context, rn *run, success bool) {
	r.mu.Lock()
	if success {
		rn.status.JobsCompleted++
	} else {
		rn.status.JobsFailed++
	}
	snapshot := rn.status
	r.mu.Unlock()
	r.publish(persist, snapshot)
}

// finish records the terminal state. A stopped run keeps the status stop gave it.
func (r *Runner) finish(persist context.Context, rn *run, state models.AutomationState) {
	r.mu.Lock()
	stopped := rn.stopped
	if !stopped {
		rn.status.Status = state
	}
	rn.status.CurrentJobID = nil
	rn.status.CurrentJobTitle = nil
	rn.resume = nil
	snapshot := rn.status
	r.mu.Unlock()

	switch {
	case stopped:
		r.log(persist, rn, models.LogInfo, "Automation run ended after stop")
	case state == models.AutomationCompleted:
		r.log(persist, rn, models.LogSuccess, "Automation process completed successfully")
	}

	finished := time.Now().UTC()
	rec := &models.AutomationRun{
		ID:            rn.id,
		JobTitle:      rn.title,
		Status:        snapshot.Status,
		JobsTotal:     snapshot.JobsTotal,
		JobsCompleted: snapshot.JobsCompleted,
		JobsFailed:    snapshot.JobsFailed,
		StartedAt:     rn.startedAt,
		FinishedAt:    &finished,
	}
	if err := r.store.UpdateRun(persist, rec); err != nil {
		r.logger.Error("failed to persist automation run", "run_id", rn.id, "error", err)
	}
	r.publish(persist, snapshot)

	r.logger.Info("automation run finished", "run_id", rn.id, "status", snapshot.Status,
		"completed", snapshot.JobsCompleted, "failed", snapshot.JobsFailed)
}

// waitIfPaused blocks while the run is paused and reports whether it was stopped.
func (r *Runner) waitIfPaused(ctx, persist context.Context, rn *run) bool {
	r.mu.Lock()
	ch := rn.resume
	r.mu.Unlock()
	if ch == nil {
		return false
	}

	r.log(persist, rn, models.LogInfo, "Waiting for resume...")
	select {
	case <-ch:
	case <-ctx.Done():
	}

	if r.isStopped(rn) {
		return true
	}
	r.log(persist, rn, models.LogInfo, "Automation resumed")
	return false
}

func (r *Runner) isStopped(rn *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rn.stopped
}

func (r *Runner) takeSkip(rn *run) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	skip := rn.skip
	rn.skip = false
	return skip
}

func (r *Runner) snapshot(rn *run) models.AutomationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rn.status
}

func (r *Runner) log(ctx context.Context, rn *run, typ models.LogType, msg string) {
	if _, err := r.store.AppendRunLog(ctx, rn.id, typ, msg); err != nil {
		r.logger.Error("failed to append automation log", "run_id", rn.id, "error", err)
	}
}

// publish writes the snapshot to the KV port for other processes and restarts.
func (r *Runner) publish(ctx context.Context, status models.AutomationStatus) {
	if r.kv == nil {
		return
	}
	if err := r.kv.SetAutomationStatus(ctx, status, r.cfg.StatusTTL); err != nil {
		r.logger.Warn("failed to publish automation status", "error", err)
	}
}

func (r *Runner) resumePath(ctx context.Context) string {
	if r.kv == nil {
		return ""
	}
	path, found, err := r.kv.Get(ctx, cache.LatestCVKey())
	if err != nil {
		r.logger.Warn("failed to read uploaded resume path", "error", err)
		return ""
	}
	if !found {
		return ""
	}
	return string(path)
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
