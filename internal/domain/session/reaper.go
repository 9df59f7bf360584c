package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/shared/clock"
)

// SweepObserver records the outcome of each reaper cycle
type SweepObserver interface {
	ObserveSweep(evicted int, duration time.Duration)
}

// Reaper periodically evicts sessions idle for longer than the TTL.
//
// Each cycle runs in two phases: snapshot every (id, last activity) pair,
// then delete the expired ids. The store lock is taken once per phase, so
// it is never held across the whole scan.
type Reaper struct {
	store    *Store
	ttl      time.Duration
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger
	observer SweepObserver

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// ReaperOption configures a Reaper
type ReaperOption func(*Reaper)

// WithInterval sets the sweep period. Zero means TTL/10.
func WithInterval(d time.Duration) ReaperOption {
	return func(r *Reaper) { r.interval = d }
}

// WithReaperClock overrides the time source. Defaults to the store's clock.
func WithReaperClock(c clock.Clock) ReaperOption {
	return func(r *Reaper) { r.clock = c }
}

// WithReaperLogger sets the logger
func WithReaperLogger(l *zap.Logger) ReaperOption {
	return func(r *Reaper) { r.logger = l.Named("reaper") }
}

// WithSweepObserver sets the per-cycle observer
func WithSweepObserver(o SweepObserver) ReaperOption {
	return func(r *Reaper) { r.observer = o }
}

// NewReaper creates a reaper for store. It does nothing until Start or
// RunCycles is called.
func NewReaper(store *Store, ttl time.Duration, opts ...ReaperOption) *Reaper {
	r := &Reaper{
		store:  store,
		ttl:    ttl,
		clock:  store.Clock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interval <= 0 {
		r.interval = ttl / 10
	}
	if r.interval <= 0 {
		r.interval = time.Second
	}
	return r
}

// TTL returns the idle timeout
func (r *Reaper) TTL() time.Duration { return r.ttl }

// Interval returns the sweep period
func (r *Reaper) Interval() time.Duration { return r.interval }

// Sweep runs one eviction cycle and returns the number of evicted sessions
func (r *Reaper) Sweep() int {
	start := time.Now()
	now := r.clock.Now()

	// Phase 1: collect candidates
	var candidates []string
	for _, a := range r.store.Activity() {
		if a.IdleFor(now) > r.ttl {
			candidates = append(candidates, a.ID)
		}
	}

	// Phase 2: evict, re-checking each candidate against the same deadline
	evicted := r.store.EvictIdle(candidates, now.Add(-r.ttl))

	if r.observer != nil {
		r.observer.ObserveSweep(len(evicted), time.Since(start))
	}
	if len(evicted) > 0 {
		r.logger.Info("cleaned up expired sessions",
			zap.Int("evicted", len(evicted)),
			zap.Int("remaining", r.store.Count()),
		)
	}
	return len(evicted)
}

// RunCycles runs exactly n sweeps synchronously and returns the total
// number of evictions. Intended for tests that drive a fake clock.
func (r *Reaper) RunCycles(n int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += r.Sweep()
	}
	return total
}

// Start launches the free-running sweep loop. It stops when ctx is
// cancelled or Stop is called. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.loop(ctx, r.done)

	r.logger.Info("session reaper started",
		zap.Duration("ttl", r.ttl),
		zap.Duration("interval", r.interval),
	)
}

// Stop cancels the loop and waits for it to exit. Safe to call repeatedly.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
	r.logger.Info("session reaper stopped")
}

func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepSafely()
		}
	}
}

// sweepSafely keeps the loop alive if a sweep panics
func (r *Reaper) sweepSafely() {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reaper sweep panicked", zap.Any("panic", rec))
		}
	}()
	r.Sweep()
}
