package logging_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    logging.Level
		wantErr bool
	}{
		{"debug", logging.LevelDebug, false},
		{"INFO", logging.LevelInfo, false},
		{"", logging.LevelInfo, false},
		{"warning", logging.LevelWarn, false},
		{"error", logging.LevelError, false},
		{"loud", logging.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := logging.ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, logging.ErrInvalidLevel) {
				t.Errorf("ParseLevel(%q) error = %v, want ErrInvalidLevel", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Tests below share the package's global state and must not run in parallel.

func TestInit_InvalidConfig(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  logging.Config
	}{
		{"bad level", logging.Config{Level: "loud", Path: filepath.Join(dir, "a.log")}},
		{"bad component level", logging.Config{
			Level:      "info",
			Path:       filepath.Join(dir, "b.log"),
			Components: map[string]string{"pool": "chatty"},
		}},
		{"bad console level", logging.Config{
			Level:        "info",
			Path:         filepath.Join(dir, "c.log"),
			ConsoleLevel: "chatty",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := logging.Init(tt.cfg); err == nil {
				_ = logging.Close()
				t.Fatal("Init() succeeded, want error")
			}
		})
	}
}

func TestGet_WritesAtComponentLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framepilot.log")

	err := logging.Init(logging.Config{
		Level:      "info",
		Path:       path,
		Components: map[string]string{"pool": "debug", "cache": "error"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	logging.Get("pool").Debug("pool detail", "workers", 2)
	logging.Get("cache").Warn("cache warning")
	logging.Get("optimizer").Info("tick", "entities", 12)

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)

	if !strings.Contains(out, "pool detail") {
		t.Errorf("debug line for pool missing:\n%s", out)
	}
	if strings.Contains(out, "cache warning") {
		t.Errorf("warn line for cache should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "entities=12") {
		t.Errorf("info line for optimizer missing:\n%s", out)
	}
}

func TestGet_SurvivesReinit(t *testing.T) {
	logger := logging.Get("adaptive")
	logger.Info("before init")

	path := filepath.Join(t.TempDir(), "reinit.log")
	if err := logging.Init(logging.Config{Level: "info", Path: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	if got := logging.Get("adaptive"); got != logger {
		t.Error("Get() returned a different logger after Init")
	}
	logger.With("window", 3).Info("after init")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "after init") || !strings.Contains(string(data), "window=3") {
		t.Errorf("cached logger did not pick up new writer:\n%s", data)
	}
	if strings.Contains(string(data), "before init") {
		t.Errorf("pre-init line leaked into file:\n%s", data)
	}
}
