// Package batch drives sequential, pausable application runs over a list of jobs.
package batch

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kiranshivaraju/jobpilot/internal/config"
	"github.com/kiranshivaraju/jobpilot/pkg/models"
)

// DefaultSuccessRate is the probability RandomApplier reports success.
const DefaultSuccessRate = 0.9

// Outcome is the result of one application attempt.
type Outcome struct {
	Success bool
	// Message explains a failure, or describes what was found on success.
	Message string
}

// Applier decides the outcome of applying to a single job.
// Implementations must be safe for concurrent use.
type Applier interface {
	Attempt(ctx context.Context, job models.JobSearchResult) (Outcome, error)
}

// ApplierFunc adapts a function to the Applier interface.
type ApplierFunc func(ctx context.Context, job models.JobSearchResult) (Outcome, error)

func (f ApplierFunc) Attempt(ctx context.Context, job models.JobSearchResult) (Outcome, error) {
	return f(ctx, job)
}

// RandomApplier succeeds with a fixed probability. A rate of 1 always
// succeeds and a rate of 0 always fails.
type RandomApplier struct {
	mu   sync.Mutex
	rng  *rand.Rand
	rate float64
}

// NewRandomApplier returns a RandomApplier. A zero seed seeds from the clock.
func NewRandomApplier(successRate float64, seed int64) *RandomApplier {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomApplier{
		rng:  rand.New(rand.NewSource(seed)),
		rate: successRate,
	}
}

func (a *RandomApplier) Attempt(ctx context.Context, _ models.JobSearchResult) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	a.mu.Lock()
	draw := a.rng.Float64()
	a.mu.Unlock()

	if draw < a.rate {
		return Outcome{Success: true}, nil
	}
	return Outcome{Message: "Application form error"}, nil
}

// NewApplier constructs the applier named in cfg. The remote client is only
// required for the "remote" strategy.
func NewApplier(cfg config.AutomationConfig, remote JobApplier) (Applier, error) {
	switch cfg.Applier {
	case "random":
		return NewRandomApplier(cfg.SuccessRate, cfg.Seed), nil
	case "probe":
		return NewProbeApplier(cfg.ProbeTimeout), nil
	case "remote":
		if remote == nil {
			return nil, fmt.Errorf("remote applier requires a backend client")
		}
		return NewRemoteApplier(remote, nil), nil
	default:
		return nil, fmt.Errorf("unknown applier %q: must be one of random, probe, remote", cfg.Applier)
	}
}

var (
	_ Applier = (*RandomApplier)(nil)
	_ Applier = ApplierFunc(nil)
)
