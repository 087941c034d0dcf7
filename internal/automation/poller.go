package automation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// DefaultPollInterval matches the backend's expected polling cadence.
const DefaultPollInterval = 3 * time.Second

// StatusSource is the subset of Client the poller needs.
type StatusSource interface {
	Status(ctx context.Context) (*models.AutomationStatus, error)
	Logs(ctx context.Context) ([]models.AutomationLog, error)
}

// PollConfig configures a polling subscription.
type PollConfig struct {
	Interval time.Duration
	// OnStatus receives every successfully fetched snapshot.
	OnStatus func(models.AutomationStatus)
	// OnLogs receives each batch of logs newer than the watermark, in server order.
	OnLogs func([]models.AutomationLog)
	Logger *slog.Logger
}

// Subscription is a handle to a running poll loop.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends polling. It is safe to call more than once and after the loop
// has stopped on its own. Stop does not wait; use Done for that.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
}

// Done is closed once the poll loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Poll starts a background loop that fetches status and logs every interval.
// The first fetch happens one interval after the call. The loop stops by itself
// after a tick observes a terminal status and fetches its logs, or when ctx is
// cancelled or Stop is called.
func Poll(ctx context.Context, src StatusSource, cfg PollConfig) *Subscription {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	p := &poller{src: src, cfg: cfg}
	go func() {
		defer close(sub.done)
		defer cancel()
		p.run(ctx)
	}()

	return sub
}

type poller struct {
	src StatusSource
	cfg PollConfig
	// lastLogID is the watermark: the highest log ID delivered so far.
	lastLogID int64
}

func (p *poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.tick(ctx) {
				return
			}
		}
	}
}

// tick performs one status+logs round and reports whether polling should stop.
func (p *poller) tick(ctx context.Context) bool {
	status, err := p.src.Status(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.cfg.Logger.Warn("automation status poll failed", "error", err)
		}
		return false
	}
	if p.cfg.OnStatus != nil {
		p.cfg.OnStatus(*status)
	}

	// A terminal status only ends polling once that tick's logs arrived, so the
	// final lines of a run are never dropped.
	logs, err := p.src.Logs(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.cfg.Logger.Warn("automation logs poll failed", "error", err)
		}
		return false
	}
	p.deliver(logs)

	return status.Status.Terminal()
}

func (p *poller) deliver(logs []models.AutomationLog) {
	var fresh []models.AutomationLog
	high := p.lastLogID
	for _, l := range logs {
		if l.ID > p.lastLogID {
			fresh = append(fresh, l)
			if l.ID > high {
				high = l.ID
			}
		}
	}
	if len(fresh) == 0 {
		return
	}
	p.lastLogID = high
	if p.cfg.OnLogs != nil {
		p.cfg.OnLogs(fresh)
	}
}
