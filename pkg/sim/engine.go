// Package sim is a headless simulated game engine. It implements every host
// capability so framepilot can be driven, measured and tested without a real
// client: entities wander, chunks turn over, textures come from a resource
// pack directory, and each frame costs time proportional to the number of
// visible chunks.
package sim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/framepilot/pkg/framepilot/adaptive"
	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/sim/pack"
)

// DefaultRenderDistance is the starting render distance in chunks.
const DefaultRenderDistance = 8

// Config describes the simulated engine.
type Config struct {
	// ResourcePack is a pack directory. Empty uses BuiltinIndex.
	ResourcePack string
	Entities     int
	Chunks       int
	// BaseFrame is the frame cost at render distance zero.
	BaseFrame time.Duration
	// ChunkCost is the frame cost of each visible chunk.
	ChunkCost      time.Duration
	RenderDistance int
	Seed           uint64
	// NoReload makes SubscribeReload report host.ErrUnsupported.
	NoReload bool
}

// Stats counts what the engine has been asked to do.
type Stats struct {
	EntityUpdates    uint64 `json:"entity_updates"`
	RenderedEntities uint64 `json:"rendered_entities"`
	RenderBatches    uint64 `json:"render_batches"`
	ChunkLoads       uint64 `json:"chunk_loads"`
	LightLookups     uint64 `json:"light_lookups"`
	TextureLoads     uint64 `json:"texture_loads"`
	TextureDeletes   uint64 `json:"texture_deletes"`
	LiveTextures     int    `json:"live_textures"`
	DoubleDeletes    uint64 `json:"double_deletes"`
}

// Engine is the simulated host engine.
type Engine struct {
	cfg       Config
	world     atomic.Pointer[World]
	resources *Resources
	renderer  *Renderer
	settings  *Settings
	logger    *logging.Logger
}

// New builds an engine with a loaded world.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.RenderDistance == 0 {
		cfg.RenderDistance = DefaultRenderDistance
	}

	index := BuiltinIndex()
	if cfg.ResourcePack != "" {
		ix, err := pack.Scan(ctx, cfg.ResourcePack)
		if err != nil {
			return nil, fmt.Errorf("loading resource pack: %w", err)
		}
		index = ix
	}

	e := &Engine{
		cfg:       cfg,
		resources: newResources(cfg.ResourcePack, index),
		settings:  &Settings{},
		logger:    logging.Get("sim"),
	}
	e.resources.noReload = cfg.NoReload
	e.settings.distance.Store(int32(cfg.RenderDistance))
	e.renderer = &Renderer{settings: e.settings}
	e.LoadWorld()

	e.logger.Info("simulated engine ready",
		"pack", index.Root,
		"textures", len(index.Textures),
		"entities", cfg.Entities,
		"chunks", cfg.Chunks)
	return e, nil
}

// World returns the loaded world, if any.
func (e *Engine) World() (host.World, bool) {
	w := e.world.Load()
	if w == nil {
		return nil, false
	}
	return w, true
}

func (e *Engine) Resources() host.Resources { return e.resources }
func (e *Engine) Renderer() host.Renderer   { return e.renderer }
func (e *Engine) Settings() host.Settings   { return e.settings }

// Sim returns the concrete resource system for reload control.
func (e *Engine) Sim() *Resources { return e.resources }

// LoadWorld replaces the world with a fresh one.
func (e *Engine) LoadWorld() {
	e.world.Store(newWorld(e.cfg.Entities, e.cfg.Chunks, e.cfg.Seed))
}

// UnloadWorld drops the world, as on a return to the title screen.
func (e *Engine) UnloadWorld() {
	e.world.Store(nil)
}

// Advance moves the world one tick forward. Driving thread only.
func (e *Engine) Advance() {
	if w := e.world.Load(); w != nil {
		w.advance()
	}
}

// FrameCost is the simulated cost of one frame at the current render
// distance.
func (e *Engine) FrameCost() time.Duration {
	return FrameCost(e.cfg.BaseFrame, e.cfg.ChunkCost, e.settings.RenderDistance())
}

// FrameCost is base plus chunkCost for each chunk in the square of side
// distance around the player.
func FrameCost(base, chunkCost time.Duration, distance int) time.Duration {
	return base + chunkCost*time.Duration(distance*distance)
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	var s Stats
	if w := e.world.Load(); w != nil {
		s.EntityUpdates = w.updates.Load()
		s.ChunkLoads = w.chunkLoads.Load()
		s.LightLookups = w.lightLookup.Load()
	}
	s.RenderedEntities = e.renderer.rendered.Load()
	s.RenderBatches = e.renderer.batches.Load()

	r := e.resources
	r.mu.Lock()
	s.TextureLoads = r.loads
	s.TextureDeletes = r.deletes
	s.LiveTextures = len(r.live)
	r.mu.Unlock()
	s.DoubleDeletes = r.doubleDeletes.Load()
	return s
}

// Close stops reload notifications.
func (e *Engine) Close() {
	e.resources.close()
}

// Settings holds the render distance. Reads are safe from any goroutine.
type Settings struct {
	distance atomic.Int32
}

func (s *Settings) RenderDistance() int { return int(s.distance.Load()) }

func (s *Settings) SetRenderDistance(chunks int) { s.distance.Store(int32(chunks)) }

// Renderer draws entities within render distance of the player.
type Renderer struct {
	settings *Settings
	rendered atomic.Uint64
	batches  atomic.Uint64
}

type frustum struct {
	origin host.Vec3
	reach  float64
}

func (f frustum) Origin() host.Vec3 { return f.origin }

func (r *Renderer) Frustum(at host.Vec3) host.Frustum {
	d := adaptive.Clamp(r.settings.RenderDistance())
	return frustum{origin: at, reach: float64(d * ChunkSize)}
}

func (r *Renderer) ShouldRender(e host.Entity, f host.Frustum) bool {
	fr, ok := f.(frustum)
	if !ok {
		return true
	}
	p := e.Position()
	dx, dz := p.X-fr.origin.X, p.Z-fr.origin.Z
	return dx*dx+dz*dz <= fr.reach*fr.reach
}

func (r *Renderer) RenderBatch(entities []host.Entity) {
	r.batches.Add(1)
	r.rendered.Add(uint64(len(entities)))
}
