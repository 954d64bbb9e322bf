package cache

import (
	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
)

// Cache names used in logs and metric labels.
const (
	ModelsName   = "models"
	TexturesName = "textures"
	LightingName = "lighting"
)

// Layer bundles the three caches the optimizer keeps.
type Layer struct {
	// Models maps a block model name to its descriptor.
	Models *Cache[string, host.ModelDescriptor]

	// Textures maps a resource id to its GPU handle.
	Textures *Cache[host.ResourceID, host.TextureHandle]

	// Lighting maps a packed block position to its light level.
	Lighting *Cache[int64, float32]
}

// NewLayer creates the three empty caches.
func NewLayer(m *metrics.Metrics) *Layer {
	return &Layer{
		Models: New[string, host.ModelDescriptor](StringHasher, StringKey,
			WithName(ModelsName), WithMetrics(m)),
		Textures: New[host.ResourceID, host.TextureHandle](StringerHasher[host.ResourceID], StringerKey[host.ResourceID],
			WithName(TexturesName), WithMetrics(m)),
		Lighting: New[int64, float32](Int64Hasher, Int64Key,
			WithName(LightingName), WithMetrics(m)),
	}
}

// Stats returns a snapshot of every cache keyed by name.
func (l *Layer) Stats() map[string]Stats {
	return map[string]Stats{
		ModelsName:   l.Models.Stats(),
		TexturesName: l.Textures.Stats(),
		LightingName: l.Lighting.Stats(),
	}
}
