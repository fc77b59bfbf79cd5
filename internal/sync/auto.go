package sync

import (
	"context"
	"sync"
	"time"

	"github.com/tasktide/tasktide/internal/logger"
)

// AutoSync keeps the orchestrator converged in the background: it polls the
// remote periodically via Bootstrap and flushes queued local mutations a
// short debounce after the last change.
type AutoSync struct {
	orch         *Orchestrator
	debounceTime time.Duration
	pollInterval time.Duration

	mu      sync.Mutex
	pending bool
	stopCh  chan struct{}
	onPull  func()
}

// NewAutoSync starts the poll loop. A pollInterval of zero disables polling;
// debounced flushing still works.
func NewAutoSync(orch *Orchestrator, pollInterval time.Duration) *AutoSync {
	a := &AutoSync{
		orch:         orch,
		debounceTime: 5 * time.Second,
		pollInterval: pollInterval,
		stopCh:       make(chan struct{}),
	}
	if pollInterval > 0 {
		go a.pollLoop()
	}
	return a
}

// SetOnPull registers a callback invoked after each successful poll.
func (a *AutoSync) SetOnPull(callback func()) {
	a.mu.Lock()
	a.onPull = callback
	a.mu.Unlock()
}

func (a *AutoSync) pollLoop() {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.orch.Bootstrap(context.Background()); err != nil {
				continue
			}
			a.mu.Lock()
			callback := a.onPull
			a.mu.Unlock()
			if callback != nil {
				callback()
			}
		case <-a.stopCh:
			return
		}
	}
}

// TriggerFlush schedules a debounced queue flush. Multiple triggers within
// the debounce window collapse into one flush.
func (a *AutoSync) TriggerFlush() {
	a.mu.Lock()
	if !a.pending {
		a.pending = true
		go a.debouncedFlush()
	}
	a.mu.Unlock()
}

func (a *AutoSync) debouncedFlush() {
	timer := time.NewTimer(a.debounceTime)
	defer timer.Stop()

	select {
	case <-timer.C:
		a.mu.Lock()
		a.pending = false
		a.mu.Unlock()
		if _, _, err := a.orch.Flush(context.Background()); err != nil {
			logger.Warn("auto flush failed", logger.F("error", err))
		}
	case <-a.stopCh:
	}
}

// FlushNowIfPending runs an immediate flush when one is scheduled. Used on
// shutdown so queued mutations are not left behind.
func (a *AutoSync) FlushNowIfPending(ctx context.Context) error {
	a.mu.Lock()
	pending := a.pending
	a.pending = false
	a.mu.Unlock()

	if !pending {
		return nil
	}
	_, _, err := a.orch.Flush(ctx)
	return err
}

// IsPending reports whether a flush is scheduled.
func (a *AutoSync) IsPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Stop tears down the poller and any scheduled flush.
func (a *AutoSync) Stop() {
	close(a.stopCh)
}
