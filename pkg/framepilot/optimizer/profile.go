package optimizer

import (
	"fmt"

	"github.com/jamesainslie/framepilot/pkg/framepilot/adaptive"
	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
	"github.com/jamesainslie/framepilot/pkg/framepilot/tuner"
)

// Limits applied to constrained devices.
const (
	ConstrainedRenderWorkers = 1
	ConstrainedDistanceCap   = 4
)

// Resizer changes a pool's worker count.
type Resizer interface {
	Resize(name pool.Name, workers int) error
}

// ApplyDeviceProfile right-sizes the render-batch pool and caps render
// distance for constrained devices. Standard devices are left alone.
func ApplyDeviceProfile(class tuner.DeviceClass, pools Resizer, distance *adaptive.Distance) error {
	if class != tuner.Constrained {
		return nil
	}

	if err := pools.Resize(pool.RenderBatch, ConstrainedRenderWorkers); err != nil {
		return fmt.Errorf("applying %s device profile: %w", class, err)
	}
	distance.Cap(ConstrainedDistanceCap)
	return nil
}
