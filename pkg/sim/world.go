package sim

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
)

// ChunkSize is the width of a chunk in blocks.
const ChunkSize = 16

type entity struct {
	mu        sync.RWMutex
	pos, prev host.Vec3
	updates   *atomic.Uint64
}

func (e *entity) Position() host.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pos
}

func (e *entity) PrevPosition() host.Vec3 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.prev
}

func (e *entity) Update() {
	e.updates.Add(1)
}

func (e *entity) step(dx, dz float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prev = e.pos
	e.pos.X += dx
	e.pos.Z += dz
}

type chunk struct {
	loaded atomic.Bool
	loads  *atomic.Uint64
}

func (c *chunk) Loaded() bool { return c.loaded.Load() }

func (c *chunk) OnLoad() {
	if c.loaded.CompareAndSwap(false, true) {
		c.loads.Add(1)
	}
}

// World is the simulated world. It implements host.World and
// host.ChunkSource.
type World struct {
	entities []host.Entity
	chunks   []host.Chunk
	player   atomic.Pointer[host.Vec3]
	rng      *rand.Rand

	updates     atomic.Uint64
	chunkLoads  atomic.Uint64
	lightLookup atomic.Uint64
}

func newWorld(entities, chunks int, seed uint64) *World {
	w := &World{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}

	span := math.Sqrt(float64(max(entities, 1))) * 4
	for range entities {
		p := host.Vec3{
			X: (w.rng.Float64() - 0.5) * span * ChunkSize,
			Y: 64,
			Z: (w.rng.Float64() - 0.5) * span * ChunkSize,
		}
		w.entities = append(w.entities, &entity{pos: p, prev: p, updates: &w.updates})
	}
	for range chunks {
		w.chunks = append(w.chunks, &chunk{loads: &w.chunkLoads})
	}

	w.player.Store(&host.Vec3{X: 0.5, Y: 64, Z: 0.5})
	return w
}

func (w *World) Entities() []host.Entity { return w.entities }

func (w *World) PlayerPosition() host.Vec3 { return *w.player.Load() }

// LightBrightness is a smooth function of position in [0, 1].
func (w *World) LightBrightness(pos host.BlockPos) float32 {
	w.lightLookup.Add(1)
	v := 0.5 + 0.25*math.Sin(float64(pos.X)/7) + 0.25*math.Cos(float64(pos.Z)/11)
	return float32(min(max(v, 0), 1))
}

func (w *World) HeldChunks() ([]host.Chunk, error) { return w.chunks, nil }

// advance moves a quarter of the entities and the player, and turns over one
// held chunk so chunk activation always has work. Driving thread only.
func (w *World) advance() {
	for i, e := range w.entities {
		if i%4 != w.rng.IntN(4) {
			continue
		}
		e.(*entity).step(w.rng.Float64()-0.5, w.rng.Float64()-0.5)
	}

	p := w.PlayerPosition()
	p.X += 0.1
	w.player.Store(&p)

	if n := len(w.chunks); n > 0 {
		w.chunks[w.rng.IntN(n)].(*chunk).loaded.Store(false)
	}
}
