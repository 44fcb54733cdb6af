package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (p *fakePruner) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.deleted, p.err
}

func (p *fakePruner) calls() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Time(nil), p.cutoffs...)
}

func TestRunOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pruner := &fakePruner{deleted: 3}
	rm := NewRetentionManager(pruner, 24*time.Hour, time.Hour, clock, zap.NewNop())

	rm.RunOnce(context.Background())

	calls := pruner.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, clock.Now().Add(-24*time.Hour), calls[0])

	state := rm.GetState()
	assert.Equal(t, 1, state.RunCount)
	assert.Equal(t, int64(3), state.LastPruned)
	assert.Equal(t, int64(3), state.TotalPruned)
	assert.Equal(t, int64(86400), state.RetentionSeconds)
	assert.Empty(t, state.LastRunError)
}

func TestRunOnce_Error(t *testing.T) {
	pruner := &fakePruner{err: errors.New("disk full")}
	rm := NewRetentionManager(pruner, time.Hour, time.Hour, clockwork.NewFakeClock(), zap.NewNop())

	rm.RunOnce(context.Background())

	state := rm.GetState()
	assert.Equal(t, "disk full", state.LastRunError)
	assert.Zero(t, state.TotalPruned)
}

func TestStartStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	pruner := &fakePruner{deleted: 1}
	rm := NewRetentionManager(pruner, 24*time.Hour, time.Hour, clock, zap.NewNop())

	rm.Start()
	rm.Start()
	assert.True(t, rm.GetState().IsRunning)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Eventually(t, func() bool { return len(pruner.calls()) == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Hour)
	assert.Eventually(t, func() bool { return len(pruner.calls()) == 2 }, time.Second, 5*time.Millisecond)

	rm.Stop()
	rm.Stop()
	state := rm.GetState()
	assert.False(t, state.IsRunning)
	assert.Equal(t, int64(2), state.TotalPruned)
}

func TestStart_ZeroRetentionDisabled(t *testing.T) {
	pruner := &fakePruner{}
	rm := NewRetentionManager(pruner, 0, time.Hour, clockwork.NewFakeClock(), zap.NewNop())

	rm.Start()
	assert.False(t, rm.GetState().IsRunning)
	rm.RunOnce(context.Background())
	assert.Empty(t, pruner.calls())
	rm.Stop()
}
