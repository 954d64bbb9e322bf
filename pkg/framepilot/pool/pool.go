package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errQueueFull = errors.New("queue full")
	errRetired   = errors.New("pool retired")
)

type job struct {
	task Task
	done chan struct{} // nil unless submitted with SubmitNotify
}

func (j job) finish() {
	if j.done != nil {
		close(j.done)
	}
}

// counters survive Resize so a pool's history is not reset by a swap.
type counters struct {
	running   atomic.Int64
	completed atomic.Uint64
	dropped   atomic.Uint64
	discarded atomic.Uint64
	panicked  atomic.Uint64
}

// pool is one generation of a named pool. Resize replaces it with a new
// generation; the old one finishes its current tasks and exits.
type pool struct {
	reg     *Registry
	name    Name
	workers int      // 0 = cached: one goroutine per task
	queue   chan job // nil for cached pools
	stats   *counters

	mu        sync.RWMutex
	accepting bool

	wg     sync.WaitGroup
	exited chan struct{}
}

func newPool(reg *Registry, name Name, workers int, stats *counters) *pool {
	p := &pool{
		reg:       reg,
		name:      name,
		workers:   workers,
		stats:     stats,
		accepting: true,
		exited:    make(chan struct{}),
	}

	if workers > 0 {
		p.queue = make(chan job, reg.queueSize)
		p.wg.Add(workers)
		for i := 0; i < workers; i++ {
			go p.worker()
		}
	}

	return p
}

func (p *pool) worker() {
	defer p.wg.Done()
	for j := range p.queue {
		p.run(j)
	}
}

// accept hands j to the pool without blocking. The caller has already counted
// j as in flight.
func (p *pool) accept(j job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.accepting {
		return errRetired
	}

	if p.queue == nil {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(j)
		}()
		return nil
	}

	select {
	case p.queue <- j:
		return nil
	default:
		return errQueueFull
	}
}

func (p *pool) run(j job) {
	if p.reg.ctx.Err() != nil {
		p.discard(j)
		return
	}

	p.stats.running.Add(1)
	start := time.Now()
	rec := invoke(p.reg.ctx, j.task)
	elapsed := time.Since(start)
	p.stats.running.Add(-1)

	outcome := "completed"
	if rec != nil {
		outcome = "panicked"
		p.stats.panicked.Add(1)
		p.reg.logger.Error("task panicked",
			"pool", p.name,
			"panic", fmt.Sprint(rec),
			"stack", string(debug.Stack()))
	} else {
		p.stats.completed.Add(1)
	}

	p.reg.metrics.RecordTask(string(p.name), outcome, elapsed.Seconds())
	j.finish()
	p.reg.inflight.Add(-1)
}

func invoke(ctx context.Context, task Task) (rec any) {
	defer func() {
		rec = recover()
	}()
	task(ctx)
	return nil
}

func (p *pool) discard(j job) {
	p.stats.discarded.Add(1)
	p.reg.metrics.RecordTaskOutcome(string(p.name), "discarded")
	j.finish()
	p.reg.inflight.Add(-1)
}

// closeLocked stops intake and starts watching for the last goroutine to
// exit. Must be called with p.mu held.
func (p *pool) closeLocked() bool {
	if !p.accepting {
		return false
	}
	p.accepting = false
	if p.queue != nil {
		close(p.queue)
	}
	go func() {
		p.wg.Wait()
		close(p.exited)
	}()
	return true
}

// retire stops intake; queued tasks still run.
func (p *pool) retire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

// stop stops intake and discards everything still queued.
func (p *pool) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue != nil && p.accepting {
	drain:
		for {
			select {
			case j := <-p.queue:
				p.discard(j)
			default:
				break drain
			}
		}
	}
	p.closeLocked()
}

// handOff moves queued tasks into next and retires p. Tasks that don't fit
// in next are discarded.
func (p *pool) handOff(next *pool) (moved, dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue != nil && p.accepting {
	drain:
		for {
			select {
			case j := <-p.queue:
				if err := next.accept(j); err != nil {
					p.stats.dropped.Add(1)
					p.reg.metrics.RecordTaskOutcome(string(p.name), "dropped")
					j.finish()
					p.reg.inflight.Add(-1)
					dropped++
					continue
				}
				moved++
			default:
				break drain
			}
		}
	}
	p.closeLocked()
	return moved, dropped
}

func (p *pool) isAccepting() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.accepting
}

func (p *pool) queued() int {
	if p.queue == nil {
		return 0
	}
	return len(p.queue)
}

// wait blocks until every goroutine of a closed pool has exited.
func (p *pool) wait(ctx context.Context) error {
	select {
	case <-p.exited:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w", p.name, ctx.Err())
	}
}

func (p *pool) hasExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}
