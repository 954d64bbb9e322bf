// Package optimizer ties framepilot together. A Manager owns the worker
// pools, the caches and the adaptive controller for one host engine and
// exposes the lifecycle hooks the host calls.
//
// The host calls OnPreInit and OnInit once during startup, OnTickStart once
// per tick and Shutdown during teardown, all from its driving thread.
// OnTickStart never waits on pool work.
package optimizer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/framepilot/pkg/framepilot/adaptive"
	"github.com/jamesainslie/framepilot/pkg/framepilot/cache"
	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
	"github.com/jamesainslie/framepilot/pkg/framepilot/loader"
	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
	"github.com/jamesainslie/framepilot/pkg/framepilot/renderq"
	"github.com/jamesainslie/framepilot/pkg/framepilot/tuner"
)

// DefaultShutdownGrace bounds Shutdown when Options.ShutdownGrace is zero.
const DefaultShutdownGrace = 500 * time.Millisecond

// Options configures a Manager.
type Options struct {
	// Device selects the device profile applied at construction.
	Device tuner.DeviceClass

	// Sizes are the initial pool sizes, usually from tuner.Calculate.
	Sizes pool.Sizes

	// QueueSize is the per-pool queue capacity. Zero uses the pool default.
	QueueSize int

	// ShutdownGrace bounds how long Shutdown waits for running tasks.
	ShutdownGrace time.Duration

	// Controller tunes the adaptive controller.
	Controller adaptive.Config

	// CuratedTextures are preloaded at startup and after every reload.
	CuratedTextures []host.ResourceID

	// Metrics receives pool, cache and controller metrics. May be nil.
	Metrics *metrics.Metrics

	// Clock replaces time.Now for the adaptive controller.
	Clock func() time.Time
}

// Manager is the per-engine optimization context.
type Manager struct {
	engine     host.Engine
	pools      *pool.Registry
	caches     *cache.Layer
	deletes    *renderq.Queue
	loader     *loader.Loader
	distance   *adaptive.Distance
	controller *adaptive.Controller
	device     tuner.DeviceClass
	grace      time.Duration

	metrics *metrics.Metrics
	logger  *logging.Logger

	ticks        atomic.Uint64
	gpuDeletes   atomic.Uint64
	closed       atomic.Bool
	noChunksOnce sync.Once
	shutdownOnce sync.Once
	shutdownErr  error

	mu         sync.Mutex
	lastWindow adaptive.Window
	lastLight  float32
	current    int
}

// New builds a Manager for engine and applies the device profile once.
func New(engine host.Engine, opts Options) *Manager {
	m := &Manager{
		engine:  engine,
		caches:  cache.NewLayer(opts.Metrics),
		deletes: renderq.New(),
		device:  opts.Device,
		grace:   opts.ShutdownGrace,
		metrics: opts.Metrics,
		logger:  logging.Get("optimizer"),
	}
	if m.grace <= 0 {
		m.grace = DefaultShutdownGrace
	}

	poolOpts := []pool.Option{pool.WithMetrics(opts.Metrics)}
	if opts.QueueSize > 0 {
		poolOpts = append(poolOpts, pool.WithQueueSize(opts.QueueSize))
	}
	m.pools = pool.New(opts.Sizes, poolOpts...)

	m.loader = loader.New(engine.Resources(), m.pools, m.caches, opts.CuratedTextures)
	m.distance = adaptive.NewDistance(engine.Settings())

	if err := ApplyDeviceProfile(opts.Device, m.pools, m.distance); err != nil {
		m.logger.Warn("device profile not applied", "device", opts.Device, "err", err)
	}

	ctrlOpts := []adaptive.Option{adaptive.WithMetrics(opts.Metrics)}
	if opts.Clock != nil {
		ctrlOpts = append(ctrlOpts, adaptive.WithClock(opts.Clock))
	}
	m.controller = adaptive.New(m.distance, opts.Controller, ctrlOpts...)
	m.current = m.distance.Get()

	m.logger.Info("optimizer ready",
		"device", opts.Device,
		"render_distance", m.current,
		"resource_load", m.pools.Workers(pool.ResourceLoad),
		"render_batch", m.pools.Workers(pool.RenderBatch),
		"world_load", m.pools.Workers(pool.WorldLoad))

	return m
}

// OnPreInit preloads models and curated textures and subscribes to
// resource reloads.
func (m *Manager) OnPreInit() {
	if m.closed.Load() {
		return
	}

	m.loader.PreloadModels()
	m.loader.PreloadTextures(m.loader.Curated())

	if err := m.loader.Hook(); err != nil {
		m.logger.Warn("reload hook not installed", "err", err)
	}
}

// OnInit runs the startup warm-up and retires the startup-init pool once
// its queued work drains.
func (m *Manager) OnInit() {
	if m.closed.Load() {
		return
	}

	m.loader.WarmUp()
	if err := m.pools.Retire(pool.StartupInit); err != nil {
		m.logger.Warn("retiring startup pool", "err", err)
	}
}

// OnTickStart runs once per host tick on the driving thread. It drains
// pending GPU deletes, fans the entity, render, cleanup and chunk passes out
// to the pools, then runs the adaptive step and the lighting lookup inline.
func (m *Manager) OnTickStart() {
	if m.closed.Load() {
		return
	}

	start := time.Now()
	defer func() {
		m.metrics.ObserveTick(time.Since(start).Seconds())
	}()
	m.ticks.Add(1)

	m.drainDeletes()

	world, ok := m.engine.World()
	if !ok {
		return
	}
	entities := world.Entities()

	m.submitEntityUpdates(entities)
	m.submitRenderBatches(world, entities)
	m.submitTextureCleanup()

	w := m.controller.Tick()

	m.submitChunkActivation(world)
	light := m.lightAtPlayer(world)

	m.mu.Lock()
	if w.Closed {
		m.lastWindow = w
	}
	m.current = w.After
	m.lastLight = light
	m.mu.Unlock()
}

func (m *Manager) drainDeletes() {
	if n := m.deletes.Drain(); n > 0 {
		m.gpuDeletes.Add(uint64(n))
		m.logger.Debug("released textures", "count", n)
	}
}

func (m *Manager) submitEntityUpdates(entities []host.Entity) {
	if len(entities) == 0 {
		return
	}

	m.pools.Submit(pool.ResourceLoad, func(ctx context.Context) {
		for _, e := range entities {
			if ctx.Err() != nil {
				return
			}
			if host.Moved(e) {
				e.Update()
			}
		}
	})
}

// submitRenderBatches splits entities into one batch per render-batch
// worker, each batch its own task.
func (m *Manager) submitRenderBatches(world host.World, entities []host.Entity) {
	n := len(entities)
	if n == 0 {
		return
	}

	renderer := m.engine.Renderer()
	frustum := renderer.Frustum(world.PlayerPosition())

	workers := max(m.pools.Workers(pool.RenderBatch), 1)
	size := (n + workers - 1) / workers

	for lo := 0; lo < n; lo += size {
		batch := entities[lo:min(lo+size, n)]
		m.pools.Submit(pool.RenderBatch, func(ctx context.Context) {
			visible := make([]host.Entity, 0, len(batch))
			for _, e := range batch {
				if ctx.Err() != nil {
					return
				}
				if renderer.ShouldRender(e, frustum) {
					visible = append(visible, e)
				}
			}
			if len(visible) > 0 {
				renderer.RenderBatch(visible)
			}
		})
	}
}

// submitTextureCleanup evicts textures the host no longer resolves and
// routes their GPU deletes to the driving thread.
func (m *Manager) submitTextureCleanup() {
	res := m.engine.Resources()

	m.pools.Submit(pool.ResourceLoad, func(ctx context.Context) {
		if ctx.Err() != nil {
			return
		}
		m.caches.Textures.EvictWhere(
			func(id host.ResourceID, _ host.TextureHandle) bool {
				_, ok := res.Texture(id)
				return !ok
			},
			func(id host.ResourceID, h host.TextureHandle) {
				if !m.deletes.Post(func() { res.DeleteTexture(h) }) {
					m.logger.Debug("texture delete dropped after shutdown", "id", id)
				}
			},
		)
	})
}

func (m *Manager) submitChunkActivation(world host.World) {
	chunks, ok := world.(host.ChunkSource)
	if !ok {
		m.noChunksOnce.Do(func() {
			m.logger.Debug("world does not expose held chunks; chunk activation disabled")
		})
		return
	}

	m.pools.Submit(pool.WorldLoad, func(ctx context.Context) {
		held, err := chunks.HeldChunks()
		if err != nil {
			m.logger.Warn("listing held chunks failed", "err", err)
			return
		}
		for _, c := range held {
			if ctx.Err() != nil {
				return
			}
			if !c.Loaded() {
				c.OnLoad()
			}
		}
	})
}

func (m *Manager) lightAtPlayer(world host.World) float32 {
	pos := host.FloorPos(world.PlayerPosition())
	light, err := m.caches.Lighting.GetOrLoad(pos.Pack(), func() (float32, error) {
		return world.LightBrightness(pos), nil
	})
	if err != nil {
		m.logger.Warn("light lookup failed", "pos", pos, "err", err)
	}
	return light
}

// Shutdown stops every pool, waiting up to the grace period, then runs the
// GPU deletes already queued and rejects any later ones. It must be called
// on the driving thread. A grace-period overrun is logged and returned;
// teardown completes regardless. Later calls return the first result.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.shutdownOnce.Do(func() {
		m.closed.Store(true)
		m.loader.Unhook()

		ctx, cancel := context.WithTimeout(ctx, m.grace)
		defer cancel()

		err := m.pools.Shutdown(ctx)
		if errors.Is(err, pool.ErrShutdownTimeout) {
			m.logger.Warn("shutdown grace period elapsed", "grace", m.grace, "err", err)
		}

		m.deletes.Close()
		m.drainDeletes()

		m.shutdownErr = err
		m.logger.Info("optimizer stopped", "ticks", m.ticks.Load(), "gpu_deletes", m.gpuDeletes.Load())
	})
	return m.shutdownErr
}

// WaitIdle blocks until the pools have no queued or running work. Intended
// for tests and the simulator.
func (m *Manager) WaitIdle(ctx context.Context) error {
	return m.pools.WaitIdle(ctx)
}

// Pools returns the manager's pool registry.
func (m *Manager) Pools() *pool.Registry { return m.pools }

// Caches returns the manager's caches.
func (m *Manager) Caches() *cache.Layer { return m.caches }

// Device returns the device class the manager was built with.
func (m *Manager) Device() tuner.DeviceClass { return m.device }
