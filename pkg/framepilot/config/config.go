package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
)

// OptimizerConfig tunes the adaptive controller.
type OptimizerConfig struct {
	TargetFPS    int           `mapstructure:"target_fps"`
	DeadBand     int           `mapstructure:"dead_band"`
	SampleWindow time.Duration `mapstructure:"sample_window"`
}

// PoolsConfig overrides computed pool sizes. Zero keeps the computed size.
type PoolsConfig struct {
	ResourceLoad  int           `mapstructure:"resource_load"`
	RenderBatch   int           `mapstructure:"render_batch"`
	WorldLoad     int           `mapstructure:"world_load"`
	QueueSize     int           `mapstructure:"queue_size"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// DeviceConfig overrides platform detection.
type DeviceConfig struct {
	// Platform replaces the probed platform string when set, e.g. "android".
	Platform string `mapstructure:"platform"`
}

// TexturesConfig lists the textures preloaded at startup and on reload.
type TexturesConfig struct {
	Curated []string `mapstructure:"curated"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level"`
	Path         string            `mapstructure:"path"`
	ConsoleLevel string            `mapstructure:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation"`
	Components   map[string]string `mapstructure:"components"`
}

// MetricsConfig configures the status endpoint.
type MetricsConfig struct {
	// Listen is the HTTP listen address. Empty disables the endpoint.
	Listen string `mapstructure:"listen"`
}

// SimConfig configures the simulated host used by `framepilot run`.
type SimConfig struct {
	ResourcePack string        `mapstructure:"resource_pack"`
	Entities     int           `mapstructure:"entities"`
	Chunks       int           `mapstructure:"chunks"`
	BaseFrame    time.Duration `mapstructure:"base_frame"`
	ChunkCost    time.Duration `mapstructure:"chunk_cost"`
	Duration     time.Duration `mapstructure:"duration"`
}

// Config represents the application configuration.
type Config struct {
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Pools     PoolsConfig     `mapstructure:"pools"`
	Device    DeviceConfig    `mapstructure:"device"`
	Textures  TexturesConfig  `mapstructure:"textures"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Sim       SimConfig       `mapstructure:"sim"`
}

// Load reads configuration from path, or from the default locations when
// path is empty:
//   - $XDG_CONFIG_HOME/framepilot/config.yaml
//   - $HOME/.config/framepilot/config.yaml
//
// Environment variables prefixed with FRAMEPILOT_ override file values
// (e.g. FRAMEPILOT_OPTIMIZER_TARGET_FPS). A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadFrom(viper.New(), path)
}

// LoadFrom is Load on a caller-supplied viper instance, so command-line
// flags bound to v take part in resolution.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "framepilot"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "framepilot"))
		}
	}

	v.SetEnvPrefix("FRAMEPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("optimizer.target_fps", DefaultTargetFPS)
	v.SetDefault("optimizer.dead_band", DefaultDeadBand)
	v.SetDefault("optimizer.sample_window", DefaultSampleWindow)

	v.SetDefault("pools.resource_load", 0)
	v.SetDefault("pools.render_batch", 0)
	v.SetDefault("pools.world_load", 0)
	v.SetDefault("pools.queue_size", DefaultQueueSize)
	v.SetDefault("pools.shutdown_grace", DefaultShutdownGrace)

	v.SetDefault("device.platform", "")

	v.SetDefault("textures.curated", DefaultCuratedTextures)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", DefaultComponentLevels)

	v.SetDefault("metrics.listen", "")

	v.SetDefault("sim.resource_pack", "")
	v.SetDefault("sim.entities", DefaultSimEntities)
	v.SetDefault("sim.chunks", DefaultSimChunks)
	v.SetDefault("sim.base_frame", DefaultSimBaseFrame)
	v.SetDefault("sim.chunk_cost", DefaultSimChunkCost)
	v.SetDefault("sim.duration", DefaultSimDuration)
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch {
	case c.Optimizer.TargetFPS <= 0:
		return fmt.Errorf("optimizer.target_fps must be positive, got %d", c.Optimizer.TargetFPS)
	case c.Optimizer.DeadBand <= 0:
		return fmt.Errorf("optimizer.dead_band must be positive, got %d", c.Optimizer.DeadBand)
	case c.Optimizer.SampleWindow <= 0:
		return fmt.Errorf("optimizer.sample_window must be positive, got %s", c.Optimizer.SampleWindow)
	case c.Pools.ResourceLoad < 0 || c.Pools.RenderBatch < 0 || c.Pools.WorldLoad < 0:
		return errors.New("pools sizes must not be negative")
	case c.Pools.QueueSize <= 0:
		return fmt.Errorf("pools.queue_size must be positive, got %d", c.Pools.QueueSize)
	}

	if _, err := c.Logging.Rotation.MaxSizeBytes(); err != nil {
		return err
	}
	return nil
}

// MaxSizeBytes parses MaxSize ("10MB", "512KiB").
func (r RotationConfig) MaxSizeBytes() (int64, error) {
	if r.MaxSize == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(r.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("invalid logging.rotation.max_size %q: %w", r.MaxSize, err)
	}
	return int64(n), nil
}

// LoggingOptions converts the logging section for logging.Init.
func (c *Config) LoggingOptions() (logging.Config, error) {
	maxSize, err := c.Logging.Rotation.MaxSizeBytes()
	if err != nil {
		return logging.Config{}, err
	}

	path := c.Logging.Path
	if path != "" {
		if path, err = ExpandPath(path); err != nil {
			return logging.Config{}, err
		}
	}

	return logging.Config{
		Level:        c.Logging.Level,
		Path:         path,
		ConsoleLevel: c.Logging.ConsoleLevel,
		Components:   c.Logging.Components,
		Rotation: logging.RotationConfig{
			MaxSize:    maxSize,
			MaxBackups: c.Logging.Rotation.MaxBackups,
		},
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "framepilot"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "framepilot"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// StateDir returns $XDG_STATE_HOME/framepilot/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "framepilot")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# framepilot configuration

# Adaptive render-distance controller
optimizer:
  target_fps: %d
  dead_band: %d
  sample_window: %s

# Worker pools (0 = size from detected CPU cores)
pools:
  resource_load: 0
  render_batch: 0
  world_load: 0
  queue_size: %d
  shutdown_grace: %s

# Device profile ("" = probe the host; "android" or "ios" forces constrained)
device:
  platform: ""

# Textures preloaded at startup and after every resource reload
textures:
  curated:
    - %s
    - %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/framepilot/framepilot.log)
  path: ""
  # Mirror logs to stderr at this level (empty disables)
  console_level: ""
  rotation:
    max_size: %s
    max_backups: %d
  # Per-component log levels
  components:
    pool: info
    cache: info
    loader: info
    optimizer: info
    adaptive: info
    sim: info
    watcher: warn

# Status endpoint serving /metrics and /snapshot (empty disables)
metrics:
  listen: ""

# Simulated host used by 'framepilot run'
sim:
  resource_pack: ""
  entities: %d
  chunks: %d
  base_frame: %s
  chunk_cost: %s
  duration: %s
`,
		DefaultTargetFPS, DefaultDeadBand, DefaultSampleWindow,
		DefaultQueueSize, DefaultShutdownGrace,
		DefaultCuratedTextures[0], DefaultCuratedTextures[1],
		DefaultLogMaxSize, DefaultLogMaxBackups,
		DefaultSimEntities, DefaultSimChunks, DefaultSimBaseFrame, DefaultSimChunkCost, DefaultSimDuration)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}
