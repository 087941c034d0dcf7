package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/jobpilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource replays a scripted sequence of status snapshots and log lists.
// Once the script is exhausted the last entry repeats.
type fakeSource struct {
	mu          sync.Mutex
	statuses    []models.AutomationStatus
	logs        [][]models.AutomationLog
	statusErrs  map[int]error
	logErrs     map[int]error
	statusCalls int
	logCalls    int
}

func (f *fakeSource) Status(_ context.Context) (*models.AutomationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.statusCalls
	f.statusCalls++
	if err := f.statusErrs[i]; err != nil {
		return nil, err
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	s := f.statuses[i]
	return &s, nil
}

func (f *fakeSource) Logs(_ context.Context) ([]models.AutomationLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.logCalls
	f.logCalls++
	if err := f.logErrs[i]; err != nil {
		return nil, err
	}
	if i >= len(f.logs) {
		i = len(f.logs) - 1
	}
	return f.logs[i], nil
}

func (f *fakeSource) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls, f.logCalls
}

func logLines(ids ...int64) []models.AutomationLog {
	out := make([]models.AutomationLog, len(ids))
	for i, id := range ids {
		out[i] = models.AutomationLog{ID: id, Type: models.LogInfo, Message: "line"}
	}
	return out
}

func running() models.AutomationStatus {
	return models.AutomationStatus{Status: models.AutomationRunning}
}

type collector struct {
	mu       sync.Mutex
	statuses []models.AutomationStatus
	batches  [][]models.AutomationLog
}

func (c *collector) onStatus(s models.AutomationStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, s)
}

func (c *collector) onLogs(l []models.AutomationLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, l)
}

func (c *collector) deliveredIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []int64
	for _, b := range c.batches {
		for _, l := range b {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoll_DeliversOnlyNewLogsAndStopsOnCompleted(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{running(), running(), {Status: models.AutomationCompleted}},
		logs: [][]models.AutomationLog{
			logLines(1, 2),
			logLines(1, 2, 3),
			logLines(1, 2, 3, 4, 5),
		},
	}
	c := &collector{}

	sub := Poll(context.Background(), src, PollConfig{
		Interval: 5 * time.Millisecond,
		OnStatus: c.onStatus,
		OnLogs:   c.onLogs,
	})
	waitDone(t, sub)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, c.deliveredIDs())
	require.Len(t, c.batches, 3)
	assert.Len(t, c.batches[2], 2)

	statusCalls, logCalls := src.calls()
	assert.Equal(t, 3, statusCalls, "no fetch may follow the terminal tick")
	assert.Equal(t, 3, logCalls)
}

func TestPoll_StopsOnFailed(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{{Status: models.AutomationFailed}},
		logs:     [][]models.AutomationLog{logLines(1)},
	}
	sub := Poll(context.Background(), src, PollConfig{Interval: 5 * time.Millisecond})
	waitDone(t, sub)

	// Give a stray ticker a chance to misbehave.
	time.Sleep(30 * time.Millisecond)
	statusCalls, _ := src.calls()
	assert.Equal(t, 1, statusCalls)
}

func TestPoll_NoEmptyBatches(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{running(), running(), {Status: models.AutomationCompleted}},
		logs:     [][]models.AutomationLog{logLines(1), logLines(1), logLines(1)},
	}
	c := &collector{}
	sub := Poll(context.Background(), src, PollConfig{Interval: 5 * time.Millisecond, OnLogs: c.onLogs})
	waitDone(t, sub)

	require.Len(t, c.batches, 1)
	assert.Equal(t, []int64{1}, c.deliveredIDs())
}

func TestPoll_ErrorsAreSwallowedAndRetried(t *testing.T) {
	boom := errors.New("connection refused")
	src := &fakeSource{
		statuses:   []models.AutomationStatus{running(), running(), running(), {Status: models.AutomationCompleted}},
		logs:       [][]models.AutomationLog{logLines(1, 2), logLines(1, 2, 3)},
		statusErrs: map[int]error{0: boom},
		logErrs:    map[int]error{0: boom},
	}
	c := &collector{}
	sub := Poll(context.Background(), src, PollConfig{Interval: 5 * time.Millisecond, OnStatus: c.onStatus, OnLogs: c.onLogs})
	waitDone(t, sub)

	assert.Equal(t, []int64{1, 2, 3}, c.deliveredIDs())
	statusCalls, _ := src.calls()
	assert.Equal(t, 4, statusCalls)
}

func TestPoll_TerminalTickLogFailureRetries(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{running(), {Status: models.AutomationCompleted}},
		logs:     [][]models.AutomationLog{logLines(1), nil, logLines(1, 2, 3)},
		logErrs:  map[int]error{1: errors.New("connection reset")},
	}
	c := &collector{}
	sub := Poll(context.Background(), src, PollConfig{Interval: 5 * time.Millisecond, OnStatus: c.onStatus, OnLogs: c.onLogs})
	waitDone(t, sub)

	assert.Equal(t, []int64{1, 2, 3}, c.deliveredIDs(), "final lines arrive on the retry")
	statusCalls, logCalls := src.calls()
	assert.Equal(t, 3, statusCalls)
	assert.Equal(t, 3, logCalls)
}

func TestPoll_WatermarkNeverMovesBackwards(t *testing.T) {
	// The backend restarts its log list; older IDs must not be replayed.
	src := &fakeSource{
		statuses: []models.AutomationStatus{running(), running(), {Status: models.AutomationCompleted}},
		logs:     [][]models.AutomationLog{logLines(4, 5), logLines(1, 2, 3), logLines(1, 2, 3, 6)},
	}
	c := &collector{}
	sub := Poll(context.Background(), src, PollConfig{Interval: 5 * time.Millisecond, OnLogs: c.onLogs})
	waitDone(t, sub)

	assert.Equal(t, []int64{4, 5, 6}, c.deliveredIDs())
}

func TestPoll_StopIsIdempotent(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{running()},
		logs:     [][]models.AutomationLog{logLines()},
	}
	sub := Poll(context.Background(), src, PollConfig{Interval: time.Hour})
	sub.Stop()
	sub.Stop()
	waitDone(t, sub)

	statusCalls, _ := src.calls()
	assert.Zero(t, statusCalls)
}

func TestPoll_StopAfterSelfTermination(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{{Status: models.AutomationCompleted}},
		logs:     [][]models.AutomationLog{logLines()},
	}
	sub := Poll(context.Background(), src, PollConfig{Interval: 5 * time.Millisecond})
	waitDone(t, sub)

	assert.NotPanics(t, func() {
		sub.Stop()
		sub.Stop()
	})
}

func TestPoll_ParentContextCancellation(t *testing.T) {
	src := &fakeSource{
		statuses: []models.AutomationStatus{running()},
		logs:     [][]models.AutomationLog{logLines()},
	}
	ctx, cancel := context.WithCancel(context.Background())
	sub := Poll(ctx, src, PollConfig{Interval: 5 * time.Millisecond})
	time.Sleep(20 * time.Millisecond)
	cancel()
	waitDone(t, sub)
}

func TestPoll_DefaultInterval(t *testing.T) {
	p := PollConfig{}
	src := &fakeSource{statuses: []models.AutomationStatus{running()}, logs: [][]models.AutomationLog{logLines()}}
	sub := Poll(context.Background(), src, p)
	defer sub.Stop()

	time.Sleep(20 * time.Millisecond)
	statusCalls, _ := src.calls()
	assert.Zero(t, statusCalls, "first fetch waits a full default interval")
}
