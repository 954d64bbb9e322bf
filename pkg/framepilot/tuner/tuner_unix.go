//go:build unix

package tuner

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect reports the CPU count and a platform string built from uname(2).
// If uname fails the platform falls back to runtime.GOOS and the error is
// returned alongside the partial result.
func Detect() (SystemResources, error) {
	resources := SystemResources{
		CPUCores: runtime.NumCPU(),
		Platform: runtime.GOOS,
	}

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return resources, fmt.Errorf("uname: %w", err)
	}

	resources.Platform = fmt.Sprintf("%s (%s %s %s)",
		runtime.GOOS,
		unix.ByteSliceToString(uts.Sysname[:]),
		unix.ByteSliceToString(uts.Release[:]),
		unix.ByteSliceToString(uts.Machine[:]))

	return resources, nil
}
