package retention

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Pruner deletes records older than a cutoff and reports how many it removed.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionState is the current state of the prune loop
type RetentionState struct {
	IsRunning        bool       `json:"isRunning"`
	RetentionSeconds int64      `json:"retentionSeconds"`
	LastRunTime      *time.Time `json:"lastRunTime"`
	LastPruned       int64      `json:"lastPruned"`
	TotalPruned      int64      `json:"totalPruned"`
	RunCount         int        `json:"runCount"`
	LastRunError     string     `json:"lastRunError,omitempty"`
}

// RetentionManager periodically prunes the event log
type RetentionManager struct {
	state     RetentionState
	mutex     sync.RWMutex
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
	clock     clockwork.Clock
	logger    *zap.Logger

	stopChannel chan struct{}
	done        chan struct{}
}

func NewRetentionManager(pruner Pruner, retention, interval time.Duration, clock clockwork.Clock, logger *zap.Logger) *RetentionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RetentionManager{
		state:     RetentionState{RetentionSeconds: int64(retention / time.Second)},
		pruner:    pruner,
		retention: retention,
		interval:  interval,
		clock:     clock,
		logger:    logger,
	}
}

// GetState returns a copy of the current state
func (rm *RetentionManager) GetState() RetentionState {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()
	return rm.state
}

// Start runs one prune immediately and then one every interval. A zero
// retention disables pruning and Start does nothing.
func (rm *RetentionManager) Start() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	if rm.state.IsRunning || rm.retention <= 0 {
		return
	}

	rm.state.IsRunning = true
	rm.stopChannel = make(chan struct{})
	rm.done = make(chan struct{})

	go rm.runLoop(rm.stopChannel, rm.done)
	rm.logger.Info("event log retention started",
		zap.Duration("retention", rm.retention), zap.Duration("interval", rm.interval))
}

// Stop stops the loop and waits for an in-progress prune to finish
func (rm *RetentionManager) Stop() {
	rm.mutex.Lock()
	if !rm.state.IsRunning || rm.stopChannel == nil {
		rm.mutex.Unlock()
		return
	}
	close(rm.stopChannel)
	rm.stopChannel = nil
	done := rm.done
	rm.mutex.Unlock()

	<-done

	rm.mutex.Lock()
	rm.state.IsRunning = false
	rm.mutex.Unlock()
	rm.logger.Info("event log retention stopped")
}

func (rm *RetentionManager) runLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := rm.clock.NewTicker(rm.interval)
	defer ticker.Stop()

	// Run first prune immediately
	rm.RunOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			rm.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single prune
func (rm *RetentionManager) RunOnce(ctx context.Context) {
	if rm.retention <= 0 {
		return
	}

	now := rm.clock.Now()
	deleted, err := rm.pruner.PruneOlderThan(ctx, now.Add(-rm.retention))

	rm.mutex.Lock()
	defer rm.mutex.Unlock()
	rm.state.LastRunTime = &now
	rm.state.RunCount++
	if err != nil {
		rm.state.LastRunError = err.Error()
		rm.logger.Error("pruning event logs failed", zap.Error(err))
		return
	}
	rm.state.LastRunError = ""
	rm.state.LastPruned = deleted
	rm.state.TotalPruned += deleted
	if deleted > 0 {
		rm.logger.Info("pruned event logs", zap.Int64("deleted", deleted))
	}
}
