// Package tuner probes the host machine and derives framepilot's pool sizes
// and device class from what it finds.
package tuner

import (
	"strings"
)

// SystemResources contains detected system properties.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int

	// Platform describes the host OS, e.g. "linux (Linux 6.8.0 x86_64)".
	Platform string
}

// DeviceClass is the coarse capability class used by the device profile.
type DeviceClass int

// Device classes.
const (
	Standard DeviceClass = iota
	Constrained
)

// String returns the lowercase class name.
func (c DeviceClass) String() string {
	if c == Constrained {
		return "constrained"
	}
	return "standard"
}

// Classify returns Constrained for mobile platforms.
func Classify(platform string) DeviceClass {
	p := strings.ToLower(platform)
	if strings.Contains(p, "android") || strings.Contains(p, "ios") {
		return Constrained
	}
	return Standard
}
