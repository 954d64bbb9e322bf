// Package host defines the capabilities framepilot needs from the game engine
// it runs inside. The engine owns the world, the resource system, the renderer
// and the settings object; framepilot only reads and pokes them through these
// interfaces.
//
// Unless noted otherwise, methods may be called from worker goroutines, so
// implementations must be safe for concurrent use.
package host

import (
	"errors"
	"math"
	"strings"
)

// ErrUnsupported is returned by optional capabilities the engine cannot provide.
var ErrUnsupported = errors.New("host capability unsupported")

// Vec3 is a position in world space.
type Vec3 struct {
	X, Y, Z float64
}

// BlockPos is an integer block coordinate.
type BlockPos struct {
	X, Y, Z int
}

// Bit layout of a packed BlockPos: x and z get 26 bits, y gets 12.
const (
	packXZBits = 26
	packYBits  = 12
	packXZMask = 1<<packXZBits - 1
	packYMask  = 1<<packYBits - 1
	packYShift = packXZBits
	packXShift = packYShift + packYBits
)

// FloorPos returns the block containing v.
func FloorPos(v Vec3) BlockPos {
	return BlockPos{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

// Pack encodes the position into a single int64 key.
func (p BlockPos) Pack() int64 {
	return int64(p.X&packXZMask)<<packXShift |
		int64(p.Y&packYMask)<<packYShift |
		int64(p.Z&packXZMask)
}

// UnpackPos reverses Pack, sign-extending each component.
func UnpackPos(k int64) BlockPos {
	x := k << (64 - packXShift - packXZBits) >> (64 - packXZBits)
	y := k << (64 - packYShift - packYBits) >> (64 - packYBits)
	z := k << (64 - packXZBits) >> (64 - packXZBits)
	return BlockPos{X: int(x), Y: int(y), Z: int(z)}
}

// ResourceID names a resource such as "minecraft:textures/blocks/dirt.png".
type ResourceID string

func (id ResourceID) String() string { return string(id) }

// TextureHandle is an opaque GPU texture name.
type TextureHandle uint32

// ModelDescriptor locates an item/block model.
type ModelDescriptor struct {
	Name    string
	Variant string
}

// InventoryVariant is the model variant preloaded for every block.
const InventoryVariant = "inventory"

// BlockModelName turns an unlocalized block name ("tile.stone") into the
// model name ("stone").
func BlockModelName(unlocalized string) string {
	return strings.TrimPrefix(unlocalized, "tile.")
}

// Entity is a loaded world entity.
type Entity interface {
	Position() Vec3
	PrevPosition() Vec3
	// Update runs the entity's per-tick update.
	Update()
}

// Moved reports whether e changed position since the previous tick.
func Moved(e Entity) bool {
	return e.Position() != e.PrevPosition()
}

// World is the active game world.
type World interface {
	Entities() []Entity
	PlayerPosition() Vec3
	LightBrightness(pos BlockPos) float32
}

// Chunk is a column of blocks held by the client.
type Chunk interface {
	Loaded() bool
	// OnLoad runs the chunk's load-completion hook.
	OnLoad()
}

// ChunkSource is an optional World capability exposing the chunks the client
// holds. Worlds that cannot enumerate their chunks simply don't implement it.
type ChunkSource interface {
	HeldChunks() ([]Chunk, error)
}

// Resources is the engine's resource system.
type Resources interface {
	// ModelNames lists the unlocalized names of all registered blocks.
	ModelNames() ([]string, error)
	// LoadTexture loads (or fetches the already loaded) texture for id.
	LoadTexture(id ResourceID) (TextureHandle, error)
	// Texture reports whether the engine still resolves id.
	Texture(id ResourceID) (TextureHandle, bool)
	// DeleteTexture frees the GPU texture. Must be called on the rendering
	// thread.
	DeleteTexture(h TextureHandle)
	// SubscribeReload registers fn to run after every resource reload. It
	// returns ErrUnsupported if the engine has no reload notification.
	SubscribeReload(fn func()) (unsubscribe func(), err error)
}

// Frustum is a camera volume for visibility tests.
type Frustum interface {
	Origin() Vec3
}

// Renderer is the engine's entity renderer.
type Renderer interface {
	Frustum(at Vec3) Frustum
	ShouldRender(e Entity, f Frustum) bool
	RenderBatch(entities []Entity)
}

// Settings is the engine's mutable settings object.
type Settings interface {
	RenderDistance() int
	SetRenderDistance(chunks int)
}

// Engine bundles every host capability.
type Engine interface {
	// World returns the active world, or false if none is loaded.
	World() (World, bool)
	Resources() Resources
	Renderer() Renderer
	Settings() Settings
}
