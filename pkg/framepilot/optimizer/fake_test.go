package optimizer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
)

type fakeEntity struct {
	pos, prev host.Vec3
	visible   bool
	updates   atomic.Int32
	onUpdate  func()
}

func (e *fakeEntity) Position() host.Vec3     { return e.pos }
func (e *fakeEntity) PrevPosition() host.Vec3 { return e.prev }

func (e *fakeEntity) Update() {
	e.updates.Add(1)
	if e.onUpdate != nil {
		e.onUpdate()
	}
}

type fakeWorld struct {
	entities   []host.Entity
	player     host.Vec3
	lightCalls atomic.Int32
}

func (w *fakeWorld) Entities() []host.Entity   { return w.entities }
func (w *fakeWorld) PlayerPosition() host.Vec3 { return w.player }

func (w *fakeWorld) LightBrightness(pos host.BlockPos) float32 {
	w.lightCalls.Add(1)
	return float32(pos.Y) / 256
}

type fakeChunk struct {
	loaded atomic.Bool
	loads  atomic.Int32
}

func (c *fakeChunk) Loaded() bool { return c.loaded.Load() }

func (c *fakeChunk) OnLoad() {
	c.loads.Add(1)
	c.loaded.Store(true)
}

type chunkWorld struct {
	*fakeWorld
	chunks []host.Chunk
	err    error
}

func (w *chunkWorld) HeldChunks() ([]host.Chunk, error) {
	return w.chunks, w.err
}

type fakeResources struct {
	mu         sync.Mutex
	handles    map[host.ResourceID]host.TextureHandle
	deleted    []host.TextureHandle
	reloadFns  []func()
	modelNames []string
}

func newFakeResources() *fakeResources {
	return &fakeResources{
		handles: map[host.ResourceID]host.TextureHandle{
			"minecraft:textures/blocks/dirt.png":  1,
			"minecraft:textures/blocks/stone.png": 2,
		},
		modelNames: []string{"tile.stone", "tile.dirt"},
	}
}

func (r *fakeResources) ModelNames() ([]string, error) { return r.modelNames, nil }

func (r *fakeResources) LoadTexture(id host.ResourceID) (host.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[id]; ok {
		return h, nil
	}
	return 0, errors.New("unknown texture")
}

func (r *fakeResources) Texture(id host.ResourceID) (host.TextureHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *fakeResources) DeleteTexture(h host.TextureHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, h)
}

func (r *fakeResources) SubscribeReload(fn func()) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloadFns = append(r.reloadFns, fn)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.reloadFns = nil
	}, nil
}

func (r *fakeResources) forget(id host.ResourceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

func (r *fakeResources) deletes() []host.TextureHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]host.TextureHandle(nil), r.deleted...)
}

func (r *fakeResources) subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reloadFns)
}

type fakeFrustum struct{ origin host.Vec3 }

func (f fakeFrustum) Origin() host.Vec3 { return f.origin }

type fakeRenderer struct {
	mu       sync.Mutex
	batches  [][]host.Entity
	frustums atomic.Int32
}

func (r *fakeRenderer) Frustum(at host.Vec3) host.Frustum {
	r.frustums.Add(1)
	return fakeFrustum{origin: at}
}

func (r *fakeRenderer) ShouldRender(e host.Entity, _ host.Frustum) bool {
	return e.(*fakeEntity).visible
}

func (r *fakeRenderer) RenderBatch(entities []host.Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, entities)
}

func (r *fakeRenderer) batchSizes() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	sizes := make([]int, 0, len(r.batches))
	for _, b := range r.batches {
		sizes = append(sizes, len(b))
	}
	return sizes
}

type fakeSettings struct {
	distance int
}

func (s *fakeSettings) RenderDistance() int     { return s.distance }
func (s *fakeSettings) SetRenderDistance(d int) { s.distance = d }

type fakeEngine struct {
	world    host.World
	res      *fakeResources
	renderer *fakeRenderer
	settings *fakeSettings
}

func newFakeEngine(world host.World) *fakeEngine {
	return &fakeEngine{
		world:    world,
		res:      newFakeResources(),
		renderer: &fakeRenderer{},
		settings: &fakeSettings{distance: 10},
	}
}

func (e *fakeEngine) World() (host.World, bool) {
	if e.world == nil {
		return nil, false
	}
	return e.world, true
}

func (e *fakeEngine) Resources() host.Resources { return e.res }
func (e *fakeEngine) Renderer() host.Renderer   { return e.renderer }
func (e *fakeEngine) Settings() host.Settings   { return e.settings }

// entities builds n visible entities, the first moved of them having moved
// since the previous tick.
func entities(n, moved int) []host.Entity {
	out := make([]host.Entity, n)
	for i := range out {
		e := &fakeEntity{
			pos:     host.Vec3{X: float64(i), Y: 64},
			prev:    host.Vec3{X: float64(i), Y: 64},
			visible: true,
		}
		if i < moved {
			e.prev.X -= 0.25
		}
		out[i] = e
	}
	return out
}
