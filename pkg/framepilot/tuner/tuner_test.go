package tuner

import (
	"runtime"
	"testing"

	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
)

func TestDetect(t *testing.T) {
	resources, err := Detect()
	if err != nil {
		t.Fatalf("Detect() returned error: %v", err)
	}

	if resources.CPUCores != runtime.NumCPU() {
		t.Errorf("CPUCores = %d, want %d (runtime.NumCPU())", resources.CPUCores, runtime.NumCPU())
	}

	if resources.Platform == "" {
		t.Error("Platform is empty")
	}

	// The probe of the machine running the tests agrees with GOOS.
	want := Standard
	if runtime.GOOS == "android" || runtime.GOOS == "ios" {
		want = Constrained
	}
	if got := Classify(resources.Platform); got != want {
		t.Errorf("Classify(%q) = %v, want %v", resources.Platform, got, want)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		platform string
		want     DeviceClass
	}{
		{"linux (Linux 6.8.0 x86_64)", Standard},
		{"darwin (Darwin 24.1.0 arm64)", Standard},
		{"windows", Standard},
		{"android (Linux 5.10.43-android12 aarch64)", Constrained},
		{"Android", Constrained},
		{"iOS 17.4", Constrained},
		{"", Standard},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			if got := Classify(tt.platform); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.platform, got, tt.want)
			}
		})
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name  string
		cores int
		want  pool.Sizes
	}{
		{"single core", 1, pool.Sizes{ResourceLoad: 2, RenderBatch: 1, WorldLoad: 2}},
		{"dual core", 2, pool.Sizes{ResourceLoad: 2, RenderBatch: 2, WorldLoad: 2}},
		{"eight cores", 8, pool.Sizes{ResourceLoad: 4, RenderBatch: 2, WorldLoad: 2}},
		{"many cores", 256, pool.Sizes{ResourceLoad: 64, RenderBatch: 2, WorldLoad: 2}},
		{"unknown cores", 0, pool.Sizes{ResourceLoad: 2, RenderBatch: 1, WorldLoad: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(SystemResources{CPUCores: tt.cores})
			if got != tt.want {
				t.Errorf("Calculate(%d cores) = %+v, want %+v", tt.cores, got, tt.want)
			}
		})
	}
}

func TestCalculateWithOverrides(t *testing.T) {
	res := SystemResources{CPUCores: 8}

	got := CalculateWithOverrides(res, Overrides{})
	if got != Calculate(res) {
		t.Errorf("empty overrides changed sizes: %+v", got)
	}

	got = CalculateWithOverrides(res, Overrides{ResourceLoad: 100, RenderBatch: 3, WorldLoad: -1})
	want := pool.Sizes{ResourceLoad: 64, RenderBatch: 3, WorldLoad: 2}
	if got != want {
		t.Errorf("CalculateWithOverrides() = %+v, want %+v", got, want)
	}
}

func TestDeviceClass_String(t *testing.T) {
	if Standard.String() != "standard" || Constrained.String() != "constrained" {
		t.Errorf("unexpected names %q, %q", Standard, Constrained)
	}
}
