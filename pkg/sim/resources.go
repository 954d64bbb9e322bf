package sim

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/sim/broadcaster"
	"github.com/jamesainslie/framepilot/pkg/sim/pack"
)

// BuiltinIndex is the texture set used when no resource pack is configured.
func BuiltinIndex() *pack.Index {
	return &pack.Index{
		Root: "builtin",
		Textures: []host.ResourceID{
			"minecraft:textures/blocks/cobblestone.png",
			"minecraft:textures/blocks/dirt.png",
			"minecraft:textures/blocks/grass_top.png",
			"minecraft:textures/blocks/planks_oak.png",
			"minecraft:textures/blocks/stone.png",
		},
		Blocks: []string{"tile.cobblestone", "tile.dirt", "tile.grass_top", "tile.planks_oak", "tile.stone"},
	}
}

// Resources is the simulated resource system. It hands out texture handles
// for ids in the current pack index and tracks which handles are live so a
// second delete of the same handle is caught.
type Resources struct {
	packDir string
	bus     *broadcaster.Broadcaster
	logger  *logging.Logger

	mu      sync.Mutex
	index   *pack.Index
	byID    map[host.ResourceID]host.TextureHandle
	live    map[host.TextureHandle]host.ResourceID
	next    host.TextureHandle
	loads   uint64
	deletes uint64

	doubleDeletes atomic.Uint64
	noReload      bool
}

func newResources(packDir string, index *pack.Index) *Resources {
	return &Resources{
		packDir: packDir,
		bus:     broadcaster.New(),
		logger:  logging.Get("sim"),
		index:   index,
		byID:    make(map[host.ResourceID]host.TextureHandle),
		live:    make(map[host.TextureHandle]host.ResourceID),
	}
}

func (r *Resources) ModelNames() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.index.Blocks...), nil
}

func (r *Resources) LoadTexture(id host.ResourceID) (host.TextureHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.byID[id]; ok {
		return h, nil
	}
	if !r.index.Has(id) {
		return 0, fmt.Errorf("texture %s not in pack %s", id, r.index.Root)
	}

	r.next++
	h := r.next
	r.byID[id] = h
	r.live[h] = id
	r.loads++
	return h, nil
}

func (r *Resources) Texture(id host.ResourceID) (host.TextureHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	return h, ok
}

func (r *Resources) DeleteTexture(h host.TextureHandle) {
	r.mu.Lock()
	id, ok := r.live[h]
	if ok {
		delete(r.live, h)
		if r.byID[id] == h {
			delete(r.byID, id)
		}
		r.deletes++
	}
	r.mu.Unlock()

	if !ok {
		r.doubleDeletes.Add(1)
		r.logger.Error("texture deleted twice", "handle", h)
	}
}

// SubscribeReload runs fn on its own goroutine after each reload until the
// returned function is called.
func (r *Resources) SubscribeReload(fn func()) (func(), error) {
	if r.noReload {
		return nil, host.ErrUnsupported
	}

	sub := r.bus.Subscribe()
	if sub == nil {
		return nil, host.ErrUnsupported
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.Events {
			fn()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.bus.Unsubscribe(sub.ID)
			<-done
		})
	}, nil
}

// Reload rescans the resource pack and swaps in the new index. Without a pack
// directory the current index is kept.
func (r *Resources) Reload(ctx context.Context) error {
	if r.packDir == "" {
		r.Swap(nil)
		return nil
	}

	ix, err := pack.Scan(ctx, r.packDir)
	if err != nil {
		return err
	}
	r.Swap(ix)
	return nil
}

// Swap replaces the pack index and notifies reload subscribers. Ids missing
// from the new index stop resolving; their GPU handles stay live until
// deleted. A nil index keeps the current one.
func (r *Resources) Swap(ix *pack.Index) {
	r.mu.Lock()
	if ix != nil {
		r.index = ix
	}
	for id := range r.byID {
		if !r.index.Has(id) {
			delete(r.byID, id)
		}
	}
	name, count := r.index.Root, len(r.index.Textures)
	r.mu.Unlock()

	event := r.bus.Notify(name, count)
	if event != nil {
		r.logger.Info("resources reloaded", "pack", name, "textures", count, "seq", event.Seq)
	}
}

func (r *Resources) close() {
	r.bus.Close()
}
