package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/framepilot/pkg/framepilot/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage framepilot configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/framepilot/config.yaml (if set)
  2. ~/.config/framepilot/config.yaml

Environment variables can override config file settings using the FRAMEPILOT_ prefix:
  FRAMEPILOT_OPTIMIZER_TARGET_FPS=30
  FRAMEPILOT_POOLS_RENDER_BATCH=1
  FRAMEPILOT_DEVICE_PLATFORM=android`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves configuration through the global viper instance so
// bound flags take part.
func loadConfig() (*config.Config, error) {
	return config.LoadFrom(viper.GetViper(), cfgFile)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			fmt.Fprintf(out, "Config file: %s\n\n", configFile)
		} else {
			fmt.Fprintln(out, "Config file: (using defaults, no file found)")
			fmt.Fprintln(out)
		}
	} else {
		fmt.Fprintln(out, "Config file: (using defaults, no file found)")
		fmt.Fprintln(out)
	}

	writeConfig(out, cfg)

	fmt.Fprintln(out, "\nEnvironment Overrides:")
	fmt.Fprintln(out, "----------------------")
	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "FRAMEPILOT_") {
			overrides = append(overrides, kv)
		}
	}
	sort.Strings(overrides)
	if len(overrides) == 0 {
		fmt.Fprintln(out, "(none)")
	}
	for _, kv := range overrides {
		fmt.Fprintln(out, kv)
	}

	return nil
}

func writeConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "----------------------")
	fmt.Fprintf(out, "optimizer.target_fps:     %d\n", cfg.Optimizer.TargetFPS)
	fmt.Fprintf(out, "optimizer.dead_band:      %d\n", cfg.Optimizer.DeadBand)
	fmt.Fprintf(out, "optimizer.sample_window:  %s\n", cfg.Optimizer.SampleWindow)
	fmt.Fprintf(out, "pools.resource_load:      %s\n", autoInt(cfg.Pools.ResourceLoad))
	fmt.Fprintf(out, "pools.render_batch:       %s\n", autoInt(cfg.Pools.RenderBatch))
	fmt.Fprintf(out, "pools.world_load:         %s\n", autoInt(cfg.Pools.WorldLoad))
	fmt.Fprintf(out, "pools.queue_size:         %d\n", cfg.Pools.QueueSize)
	fmt.Fprintf(out, "pools.shutdown_grace:     %s\n", cfg.Pools.ShutdownGrace)
	fmt.Fprintf(out, "device.platform:          %s\n", orDefault(cfg.Device.Platform, "(detected)"))
	fmt.Fprintf(out, "textures.curated:         %v\n", cfg.Textures.Curated)
	fmt.Fprintf(out, "logging.level:            %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "logging.path:             %s\n", orDefault(cfg.Logging.Path, "(default)"))
	fmt.Fprintf(out, "logging.rotation:         %s x %d\n", cfg.Logging.Rotation.MaxSize, cfg.Logging.Rotation.MaxBackups)
	fmt.Fprintf(out, "metrics.listen:           %s\n", orDefault(cfg.Metrics.Listen, "(disabled)"))
	fmt.Fprintf(out, "sim.resource_pack:        %s\n", orDefault(cfg.Sim.ResourcePack, "(builtin)"))
	fmt.Fprintf(out, "sim.entities:             %d\n", cfg.Sim.Entities)
	fmt.Fprintf(out, "sim.chunks:               %d\n", cfg.Sim.Chunks)
	fmt.Fprintf(out, "sim.base_frame:           %s\n", cfg.Sim.BaseFrame)
	fmt.Fprintf(out, "sim.chunk_cost:           %s\n", cfg.Sim.ChunkCost)
	fmt.Fprintf(out, "sim.duration:             %s\n", cfg.Sim.Duration)
}

func autoInt(n int) string {
	if n <= 0 {
		return "auto"
	}
	return fmt.Sprintf("%d", n)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
