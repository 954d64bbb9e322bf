package tuner

import (
	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
)

const (
	// maxWorkers caps any pool.
	maxWorkers = 64

	// minResourceWorkers keeps texture and model loads overlapping on
	// single-core machines.
	minResourceWorkers = 2

	// maxRenderWorkers bounds render batching; batches contend for the
	// renderer.
	maxRenderWorkers = 2

	// worldWorkers is the fixed chunk-activation pool size.
	worldWorkers = 2
)

// Overrides replaces computed pool sizes. Zero or negative fields keep the
// computed value.
type Overrides struct {
	ResourceLoad int
	RenderBatch  int
	WorldLoad    int
}

// Calculate returns pool sizes for the detected resources:
//   - startup-init: cached (0)
//   - resource-load: max(2, cores/2)
//   - render-batch: min(2, cores)
//   - world-load: 2
func Calculate(resources SystemResources) pool.Sizes {
	cores := max(resources.CPUCores, 1)

	return pool.Sizes{
		StartupInit:  0,
		ResourceLoad: min(max(minResourceWorkers, cores/2), maxWorkers),
		RenderBatch:  min(maxRenderWorkers, cores),
		WorldLoad:    worldWorkers,
	}
}

// CalculateWithOverrides applies o on top of Calculate, still capping each
// pool at 64 workers.
func CalculateWithOverrides(resources SystemResources, o Overrides) pool.Sizes {
	sizes := Calculate(resources)

	if o.ResourceLoad > 0 {
		sizes.ResourceLoad = min(o.ResourceLoad, maxWorkers)
	}
	if o.RenderBatch > 0 {
		sizes.RenderBatch = min(o.RenderBatch, maxWorkers)
	}
	if o.WorldLoad > 0 {
		sizes.WorldLoad = min(o.WorldLoad, maxWorkers)
	}

	return sizes
}
