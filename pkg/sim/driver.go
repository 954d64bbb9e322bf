package sim

import (
	"context"
	"time"
)

// TickHook receives the start of every simulated tick.
type TickHook interface {
	OnTickStart()
}

// RunStats summarizes a Driver run.
type RunStats struct {
	Ticks   uint64        `json:"ticks"`
	Elapsed time.Duration `json:"elapsed"`
}

// FPS is the average frame rate over the run.
func (s RunStats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Ticks) / s.Elapsed.Seconds()
}

// Driver is the simulated driving thread: it advances the world, calls the
// tick hook, then burns the frame cost for the current render distance.
type Driver struct {
	engine *Engine
	hook   TickHook
}

// NewDriver returns a driver for engine that calls hook every tick.
func NewDriver(engine *Engine, hook TickHook) *Driver {
	return &Driver{engine: engine, hook: hook}
}

// Run ticks until ctx is done or, when duration is positive, until duration
// has elapsed. Cancellation is a normal stop.
func (d *Driver) Run(ctx context.Context, duration time.Duration) RunStats {
	start := time.Now()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, start.Add(duration))
		defer cancel()
	}

	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	var stats RunStats
	for ctx.Err() == nil {
		d.engine.Advance()
		d.hook.OnTickStart()
		stats.Ticks++

		timer.Reset(d.engine.FrameCost())
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	stats.Elapsed = time.Since(start)
	d.engine.logger.Debug("driver stopped", "ticks", stats.Ticks, "elapsed", stats.Elapsed)
	return stats
}
