// Package config provides configuration management for framepilot.
package config

import "time"

// Default configuration values.
const (
	// DefaultTargetFPS is the frame rate the adaptive controller holds.
	DefaultTargetFPS = 60

	// DefaultDeadBand is the FPS tolerance around the target.
	DefaultDeadBand = 10

	// DefaultSampleWindow is the FPS sampling window.
	DefaultSampleWindow = time.Second

	// DefaultQueueSize is the per-pool task queue capacity.
	DefaultQueueSize = 1024

	// DefaultShutdownGrace bounds how long shutdown waits for running tasks.
	DefaultShutdownGrace = 500 * time.Millisecond

	// DefaultLogMaxSize is the log size that triggers rotation.
	DefaultLogMaxSize = "10MB"

	// DefaultLogMaxBackups is the number of rotated logs kept.
	DefaultLogMaxBackups = 3

	// DefaultSimEntities is the simulated entity count.
	DefaultSimEntities = 400

	// DefaultSimChunks is the simulated held chunk count.
	DefaultSimChunks = 256

	// DefaultSimBaseFrame is the simulated frame cost at zero render distance.
	DefaultSimBaseFrame = 4 * time.Millisecond

	// DefaultSimChunkCost is the simulated frame cost per visible chunk.
	DefaultSimChunkCost = 100 * time.Microsecond

	// DefaultSimDuration is how long `framepilot run` drives the simulator.
	DefaultSimDuration = 30 * time.Second
)

// DefaultCuratedTextures are preloaded at startup and after every resource
// reload.
var DefaultCuratedTextures = []string{
	"minecraft:textures/blocks/dirt.png",
	"minecraft:textures/blocks/stone.png",
}

// DefaultComponentLevels are the per-component log levels.
var DefaultComponentLevels = map[string]string{
	"pool":      "info",
	"cache":     "info",
	"loader":    "info",
	"optimizer": "info",
	"adaptive":  "info",
	"sim":       "info",
	"watcher":   "warn",
}
