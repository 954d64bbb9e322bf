package optimizer

import (
	"github.com/jamesainslie/framepilot/pkg/framepilot/adaptive"
	"github.com/jamesainslie/framepilot/pkg/framepilot/cache"
	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
)

// Snapshot is a point-in-time view of a Manager for observers.
type Snapshot struct {
	Ticks          uint64                 `json:"ticks"`
	Device         string                 `json:"device"`
	RenderDistance int                    `json:"render_distance"`
	LastWindow     adaptive.Window        `json:"last_window"`
	Light          float32                `json:"light"`
	PendingDeletes int                    `json:"pending_deletes"`
	GPUDeletes     uint64                 `json:"gpu_deletes"`
	Closed         bool                   `json:"closed"`
	Pools          []pool.Stats           `json:"pools"`
	Caches         map[string]cache.Stats `json:"caches"`
}

// Snapshot returns the current state. Safe to call from any goroutine.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	s := Snapshot{
		RenderDistance: m.current,
		LastWindow:     m.lastWindow,
		Light:          m.lastLight,
	}
	m.mu.Unlock()

	s.Ticks = m.ticks.Load()
	s.Device = m.device.String()
	s.PendingDeletes = m.deletes.Len()
	s.GPUDeletes = m.gpuDeletes.Load()
	s.Closed = m.closed.Load()
	s.Pools = m.pools.Stats()
	s.Caches = m.caches.Stats()
	return s
}
