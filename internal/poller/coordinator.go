package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/hapulse/internal/stats"
)

// ErrStopped is returned by [Coordinator.Start] after [Coordinator.Stop].
var ErrStopped = errors.New("coordinator stopped")

// Refresh describes the outcome of one poll. It is delivered to every
// listener after the coordinator's state has been updated.
type Refresh struct {
	// Source is the coordinator's name.
	Source string

	// Snapshot is the current snapshot: the new one on success, the last
	// good one (possibly nil) on failure.
	Snapshot *stats.Snapshot

	// Err is nil on success.
	Err error

	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int

	// Latency is the time the fetch took.
	Latency time.Duration

	// At is when the poll completed.
	At time.Time
}

// Coordinator polls one source on a fixed interval and keeps its latest
// snapshot.
//
// The first refresh runs synchronously inside [Coordinator.Start] and its
// failure is returned to the caller. After that, failed polls keep the last
// good snapshot, increment the failure counter, and notify listeners; they
// never stop the schedule.
//
// Polls run on a single goroutine, so at most one fetch is in flight and
// ticks that fire during a slow fetch are coalesced. The snapshot is swapped
// atomically: readers see either the old or the new snapshot in full.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Coordinator struct {
	name     string
	fetcher  SnapshotFetcher
	interval time.Duration
	logger   *slog.Logger

	snapshot atomic.Pointer[stats.Snapshot]

	mu          sync.Mutex
	listeners   []func(Refresh)
	failures    int
	lastErr     error
	lastSuccess time.Time
	lastAttempt time.Time
	started     bool
	stopped     bool
	cancel      context.CancelFunc

	wg sync.WaitGroup
}

// NewCoordinator creates a [Coordinator] named name that calls fetcher
// every interval.
//
// The coordinator must be started with [Coordinator.Start] and stopped with
// [Coordinator.Stop].
func NewCoordinator(name string, fetcher SnapshotFetcher, interval time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		name:     name,
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Name returns the coordinator's name.
func (c *Coordinator) Name() string {
	return c.name
}

// Interval returns the time between scheduled polls.
func (c *Coordinator) Interval() time.Duration {
	return c.interval
}

// Subscribe registers fn to be called after every poll, successful or not.
//
// Listeners run synchronously on the polling goroutine in registration
// order and must not block. Panics are recovered and logged.
func (c *Coordinator) Subscribe(fn func(Refresh)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Start performs the first refresh and, if it succeeds, starts the polling
// loop in a background goroutine.
//
// A failed first refresh is returned and the loop is not started; the
// coordinator cannot be restarted afterwards. Calling Start on a running
// coordinator is a no-op. Start returns [ErrStopped] after Stop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.poll(loopCtx); err != nil {
		c.Stop()
		return fmt.Errorf("first refresh of %s: %w", c.name, err)
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrStopped
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				_ = c.poll(loopCtx)
			}
		}
	}()

	return nil
}

// Stop halts the polling loop and waits for it to exit.
//
// An in-flight fetch is abandoned through context cancellation and its
// result is discarded. Stop is idempotent and safe to call before Start.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		if c.cancel != nil {
			c.cancel()
		}
	}
	c.mu.Unlock()

	c.wg.Wait()

	if closer, ok := c.fetcher.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Current returns the last successful snapshot, or nil before the first
// successful poll.
func (c *Coordinator) Current() *stats.Snapshot {
	return c.snapshot.Load()
}

// ConsecutiveFailures returns the number of failed polls since the last
// success.
func (c *Coordinator) ConsecutiveFailures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// LastError returns the error of the most recent poll, nil if it succeeded.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LastSuccess returns when the last successful poll completed.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSuccess
}

// LastAttempt returns when the last poll completed.
func (c *Coordinator) LastAttempt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAttempt
}

// Available reports whether the most recent poll succeeded.
func (c *Coordinator) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr == nil && !c.lastSuccess.IsZero()
}

// poll runs one fetch cycle and returns the fetch error, if any.
//
// If ctx is cancelled while the fetch is in flight, nothing is written back
// and listeners are not notified.
func (c *Coordinator) poll(ctx context.Context) error {
	start := time.Now()
	snap, err := c.fetcher.Fetch(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	now := time.Now()

	c.mu.Lock()
	c.lastAttempt = now
	if err != nil {
		c.failures++
		c.lastErr = err
	} else {
		c.snapshot.Store(snap)
		c.failures = 0
		c.lastErr = nil
		c.lastSuccess = now
	}
	refresh := Refresh{
		Source:              c.name,
		Snapshot:            c.snapshot.Load(),
		Err:                 err,
		ConsecutiveFailures: c.failures,
		Latency:             now.Sub(start),
		At:                  now,
	}
	listeners := make([]func(Refresh), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("stats poll failed",
			"source", c.name,
			"consecutive_failures", refresh.ConsecutiveFailures,
			"latency_ms", refresh.Latency.Milliseconds(),
			"error", err.Error(),
		)
	} else {
		c.logger.Debug("stats poll completed",
			"source", c.name,
			"rows", snap.Len(),
			"latency_ms", refresh.Latency.Milliseconds(),
		)
	}

	for _, fn := range listeners {
		c.notifySafe(fn, refresh)
	}

	return err
}

// notifySafe calls a listener with panic recovery.
// The full stack trace is logged with a correlation ID.
func (c *Coordinator) notifySafe(fn func(Refresh), refresh Refresh) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh listener panicked",
				"correlation_id", uuid.NewString(),
				"source", c.name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(refresh)
}
