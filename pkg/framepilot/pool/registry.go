// Package pool runs framepilot's four fixed-purpose worker pools.
//
// Work is fire-and-forget: Submit never blocks the caller and never reports
// the task's outcome. A full queue, an unknown pool name or a registry that is
// shutting down all cause the task to be dropped and counted. Panics inside a
// task are recovered and logged at the task boundary.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
)

// Name identifies one of the fixed-purpose pools.
type Name string

// The four pools.
const (
	StartupInit  Name = "startup-init"
	ResourceLoad Name = "resource-load"
	RenderBatch  Name = "render-batch"
	WorldLoad    Name = "world-load"
)

// Names returns every pool name in a stable order.
func Names() []Name {
	return []Name{StartupInit, ResourceLoad, RenderBatch, WorldLoad}
}

// Task is a unit of pool work. ctx is cancelled once shutdown begins.
type Task func(ctx context.Context)

var (
	// ErrUnknownPool is returned for a name outside Names().
	ErrUnknownPool = errors.New("unknown pool")

	// ErrShutdownTimeout is returned by Shutdown when tasks outlive the grace period.
	ErrShutdownTimeout = errors.New("pool shutdown grace period elapsed")

	// ErrClosed is returned by Resize and Retire after Shutdown.
	ErrClosed = errors.New("pool registry closed")

	// ErrRetired is returned when resizing a pool that no longer accepts work.
	ErrRetired = errors.New("pool retired")
)

// DefaultQueueSize is the per-pool queue capacity.
const DefaultQueueSize = 1024

// Sizes holds the worker count of each pool. Zero means cached.
type Sizes struct {
	StartupInit  int
	ResourceLoad int
	RenderBatch  int
	WorldLoad    int
}

// Of returns the size configured for name.
func (s Sizes) Of(name Name) int {
	switch name {
	case StartupInit:
		return s.StartupInit
	case ResourceLoad:
		return s.ResourceLoad
	case RenderBatch:
		return s.RenderBatch
	case WorldLoad:
		return s.WorldLoad
	default:
		return 0
	}
}

// Stats is a point-in-time view of one pool.
type Stats struct {
	Name      Name   `json:"name"`
	Workers   int    `json:"workers"`
	Queued    int    `json:"queued"`
	Running   int64  `json:"running"`
	Completed uint64 `json:"completed"`
	Dropped   uint64 `json:"dropped"`
	Discarded uint64 `json:"discarded"`
	Panicked  uint64 `json:"panicked"`
	Retired   bool   `json:"retired"`
}

// Registry owns the pools. All methods are safe for concurrent use.
type Registry struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	pools    map[Name]*pool
	counters map[Name]*counters
	previous []*pool // generations replaced by Resize, still draining

	closed    atomic.Bool
	inflight  atomic.Int64
	queueSize int

	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithQueueSize sets the per-pool queue capacity.
func WithQueueSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// WithMetrics reports task outcomes and pool sizes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New starts the four pools with the given sizes.
func New(sizes Sizes, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		ctx:       ctx,
		cancel:    cancel,
		pools:     make(map[Name]*pool),
		counters:  make(map[Name]*counters),
		queueSize: DefaultQueueSize,
		logger:    logging.Get("pool"),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, name := range Names() {
		workers := max(sizes.Of(name), 0)
		c := &counters{}
		r.counters[name] = c
		r.pools[name] = newPool(r, name, workers, c)
		r.metrics.SetPoolWorkers(string(name), workers)
	}

	r.logger.Debug("pools started",
		"startup_init", sizes.StartupInit,
		"resource_load", sizes.ResourceLoad,
		"render_batch", sizes.RenderBatch,
		"world_load", sizes.WorldLoad,
		"queue_size", r.queueSize)

	return r
}

// Submit queues task on the named pool and returns immediately.
func (r *Registry) Submit(name Name, task Task) {
	r.submit(name, job{task: task})
}

// SubmitNotify is Submit with a completion signal: the returned channel is
// closed once the task has run, or immediately if it was dropped.
func (r *Registry) SubmitNotify(name Name, task Task) <-chan struct{} {
	done := make(chan struct{})
	r.submit(name, job{task: task, done: done})
	return done
}

func (r *Registry) submit(name Name, j job) {
	if r.closed.Load() {
		j.finish()
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pools[name]
	if !ok {
		r.logger.Warn("task dropped", "pool", name, "err", ErrUnknownPool)
		j.finish()
		return
	}

	r.inflight.Add(1)
	if err := p.accept(j); err != nil {
		r.inflight.Add(-1)
		p.stats.dropped.Add(1)
		r.metrics.RecordTaskOutcome(string(name), "dropped")
		r.logger.Debug("task dropped", "pool", name, "err", err)
		j.finish()
	}
}

// Resize replaces the named pool with one of the given worker count. Queued
// tasks move to the new pool; running tasks finish on the old workers.
func (r *Registry) Resize(name Name, workers int) error {
	if workers < 0 {
		return fmt.Errorf("resizing %s: negative worker count %d", name, workers)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed.Load() {
		return ErrClosed
	}

	old, ok := r.pools[name]
	if !ok {
		return fmt.Errorf("resizing %s: %w", name, ErrUnknownPool)
	}
	if !old.isAccepting() {
		return fmt.Errorf("resizing %s: %w", name, ErrRetired)
	}
	if old.workers == workers {
		return nil
	}

	next := newPool(r, name, workers, old.stats)
	moved, dropped := old.handOff(next)
	r.pools[name] = next

	live := r.previous[:0]
	for _, p := range r.previous {
		if !p.hasExited() {
			live = append(live, p)
		}
	}
	r.previous = append(live, old)

	r.metrics.SetPoolWorkers(string(name), workers)
	r.logger.Info("pool resized",
		"pool", name,
		"from", old.workers,
		"to", workers,
		"moved", moved,
		"dropped", dropped)

	return nil
}

// Retire stops the named pool from accepting work. Already queued tasks
// still run.
func (r *Registry) Retire(name Name) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed.Load() {
		return ErrClosed
	}

	p, ok := r.pools[name]
	if !ok {
		return fmt.Errorf("retiring %s: %w", name, ErrUnknownPool)
	}
	if p.retire() {
		r.logger.Debug("pool retired", "pool", name, "queued", p.queued())
	}
	return nil
}

// Shutdown stops every pool: new work is refused, queued tasks are
// discarded and running tasks see their context cancelled. It waits for all
// pools concurrently until ctx is done, then returns ErrShutdownTimeout.
// Calling it again is a no-op.
func (r *Registry) Shutdown(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}

	start := time.Now()
	r.cancel()

	r.mu.RLock()
	all := make([]*pool, 0, len(r.pools)+len(r.previous))
	for _, name := range Names() {
		all = append(all, r.pools[name])
	}
	all = append(all, r.previous...)
	r.mu.RUnlock()

	var g errgroup.Group
	for _, p := range all {
		p.stop()
		g.Go(func() error {
			return p.wait(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Warn("pools still busy after grace period",
			"elapsed", time.Since(start),
			"inflight", r.inflight.Load())
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, err)
	}

	r.logger.Debug("pools stopped", "elapsed", time.Since(start))
	return nil
}

// WaitIdle blocks until no pool has queued or running work, or ctx is done.
func (r *Registry) WaitIdle(ctx context.Context) error {
	if r.inflight.Load() == 0 {
		return nil
	}

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.inflight.Load() == 0 {
				return nil
			}
		}
	}
}

// Workers returns the current worker count of the named pool, 0 if the pool
// is cached or unknown.
func (r *Registry) Workers(name Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.pools[name]; ok {
		return p.workers
	}
	return 0
}

// Closed reports whether Shutdown has been called.
func (r *Registry) Closed() bool {
	return r.closed.Load()
}

// Stats returns a snapshot of every pool in Names() order.
func (r *Registry) Stats() []Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Stats, 0, len(r.pools))
	for _, name := range Names() {
		p := r.pools[name]
		out = append(out, Stats{
			Name:      name,
			Workers:   p.workers,
			Queued:    p.queued(),
			Running:   p.stats.running.Load(),
			Completed: p.stats.completed.Load(),
			Dropped:   p.stats.dropped.Load(),
			Discarded: p.stats.discarded.Load(),
			Panicked:  p.stats.panicked.Load(),
			Retired:   !p.isAccepting(),
		})
	}
	return out
}
