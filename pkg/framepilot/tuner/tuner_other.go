//go:build !unix

package tuner

import (
	"runtime"
)

// Detect reports the CPU count and runtime.GOOS as the platform.
func Detect() (SystemResources, error) {
	return SystemResources{
		CPUCores: runtime.NumCPU(),
		Platform: runtime.GOOS,
	}, nil
}
