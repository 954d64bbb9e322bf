package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/framepilot/cmd/framepilot/tui"
	"github.com/jamesainslie/framepilot/pkg/framepilot/adaptive"
	"github.com/jamesainslie/framepilot/pkg/framepilot/config"
	"github.com/jamesainslie/framepilot/pkg/framepilot/host"
	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
	"github.com/jamesainslie/framepilot/pkg/framepilot/optimizer"
	"github.com/jamesainslie/framepilot/pkg/framepilot/pool"
	"github.com/jamesainslie/framepilot/pkg/framepilot/tuner"
	"github.com/jamesainslie/framepilot/pkg/sim"
	"github.com/jamesainslie/framepilot/pkg/sim/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the optimizer against the simulated client",
	Long: `Run builds the optimizer for a headless simulated client and ticks it for
the configured duration (sim.duration), then prints a summary.

With --pack the simulated resource system serves textures from a resource
pack directory and reloads whenever files in it change.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.DurationP("duration", "d", config.DefaultSimDuration, "how long to run (0 = until interrupted)")
	flags.String("pack", "", "resource pack directory")
	flags.String("listen", "", "status endpoint address, e.g. :9464")
	flags.String("platform", "", "override the detected platform (android/ios force a constrained profile)")
	flags.Int("target-fps", config.DefaultTargetFPS, "frame rate to hold")
	flags.Bool("tui", false, "show a live dashboard")
	flags.BoolP("json", "j", false, "print the summary as JSON")

	_ = viper.BindPFlag("sim.duration", flags.Lookup("duration"))
	_ = viper.BindPFlag("sim.resource_pack", flags.Lookup("pack"))
	_ = viper.BindPFlag("metrics.listen", flags.Lookup("listen"))
	_ = viper.BindPFlag("device.platform", flags.Lookup("platform"))
	_ = viper.BindPFlag("optimizer.target_fps", flags.Lookup("target-fps"))
	_ = viper.BindPFlag("tui", flags.Lookup("tui"))
	_ = viper.BindPFlag("json", flags.Lookup("json"))

	rootCmd.AddCommand(runCmd)
}

// runSummary is the --json output.
type runSummary struct {
	Run       sim.RunStats       `json:"run"`
	Optimizer optimizer.Snapshot `json:"optimizer"`
	Engine    sim.Stats          `json:"engine"`
	Shutdown  string             `json:"shutdown_error,omitempty"`
}

// runRun is the run command handler.
func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogging(cfg); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()
	log := logging.Get("cli")

	device, sizes := detectDevice(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := sim.New(ctx, sim.Config{
		ResourcePack: cfg.Sim.ResourcePack,
		Entities:     cfg.Sim.Entities,
		Chunks:       cfg.Sim.Chunks,
		BaseFrame:    cfg.Sim.BaseFrame,
		ChunkCost:    cfg.Sim.ChunkCost,
		Seed:         uint64(time.Now().UnixNano()),
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	reg := prometheus.NewRegistry()
	mgr := optimizer.New(engine, optimizer.Options{
		Device:        device,
		Sizes:         sizes,
		QueueSize:     cfg.Pools.QueueSize,
		ShutdownGrace: cfg.Pools.ShutdownGrace,
		Controller: adaptive.Config{
			TargetFPS: cfg.Optimizer.TargetFPS,
			DeadBand:  cfg.Optimizer.DeadBand,
			Window:    cfg.Optimizer.SampleWindow,
		},
		CuratedTextures: curatedTextures(cfg.Textures.Curated),
		Metrics:         metrics.NewMetrics(reg),
	})

	if cfg.Sim.ResourcePack != "" {
		stopWatch, err := watchPack(ctx, cfg.Sim.ResourcePack, engine)
		if err != nil {
			log.Warn("resource pack not watched", "pack", cfg.Sim.ResourcePack, "err", err)
		} else {
			defer stopWatch()
		}
	}

	if cfg.Metrics.Listen != "" {
		statusCtx, cancelStatus := context.WithCancel(ctx)
		defer cancelStatus()
		router := newStatusRouter(reg, mgr, engine.Stats)
		go func() {
			if err := serveStatus(statusCtx, cfg.Metrics.Listen, router); err != nil {
				log.Error("status server failed", "addr", cfg.Metrics.Listen, "err", err)
			}
		}()
		printVerbose("Status endpoint on %s (/metrics, /snapshot)", cfg.Metrics.Listen)
	}

	mgr.OnPreInit()
	mgr.OnInit()

	driver := sim.NewDriver(engine, mgr)
	var stats sim.RunStats
	if viper.GetBool("tui") {
		stats, err = runDashboard(ctx, driver, mgr, engine, cfg)
		if err != nil {
			return err
		}
	} else {
		printInfo("Running %s on a %s device (render distance %d, target %d fps)...",
			durationLabel(cfg.Sim.Duration), device, mgr.Snapshot().RenderDistance, cfg.Optimizer.TargetFPS)
		stats = driver.Run(ctx, cfg.Sim.Duration)
	}

	shutdownErr := mgr.Shutdown(context.Background())
	if shutdownErr != nil && !errors.Is(shutdownErr, pool.ErrShutdownTimeout) {
		return fmt.Errorf("shutting down optimizer: %w", shutdownErr)
	}

	summary := runSummary{Run: stats, Optimizer: mgr.Snapshot(), Engine: engine.Stats()}
	if shutdownErr != nil {
		summary.Shutdown = shutdownErr.Error()
	}
	return printSummary(cmd, summary)
}

func initLogging(cfg *config.Config) error {
	opts, err := cfg.LoggingOptions()
	if err != nil {
		return err
	}
	if getVerbose() && opts.ConsoleLevel == "" && !viper.GetBool("tui") {
		opts.ConsoleLevel = "debug"
	}
	if err := logging.Init(opts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// detectDevice probes the machine and derives the device class and pool
// sizes, honoring config overrides.
func detectDevice(cfg *config.Config) (tuner.DeviceClass, pool.Sizes) {
	resources, err := tuner.Detect()
	if err != nil {
		printVerbose("Failed to detect system resources, using defaults: %v", err)
		resources = tuner.SystemResources{CPUCores: runtime.NumCPU(), Platform: runtime.GOOS}
	}

	platform := resources.Platform
	if cfg.Device.Platform != "" {
		platform = cfg.Device.Platform
	}
	device := tuner.Classify(platform)

	sizes := tuner.CalculateWithOverrides(resources, tuner.Overrides{
		ResourceLoad: cfg.Pools.ResourceLoad,
		RenderBatch:  cfg.Pools.RenderBatch,
		WorldLoad:    cfg.Pools.WorldLoad,
	})

	printVerbose("System: %d CPUs, platform %q, device %s", resources.CPUCores, platform, device)
	printVerbose("Pools: resource-load %d, render-batch %d, world-load %d",
		sizes.ResourceLoad, sizes.RenderBatch, sizes.WorldLoad)
	return device, sizes
}

func curatedTextures(ids []string) []host.ResourceID {
	out := make([]host.ResourceID, 0, len(ids))
	for _, id := range ids {
		out = append(out, host.ResourceID(id))
	}
	return out
}

// watchPack reloads the engine's resources whenever the pack directory
// settles after a change.
func watchPack(ctx context.Context, dir string, engine *sim.Engine) (func(), error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return nil, err
	}

	w, err := watcher.New(0)
	if err != nil {
		return nil, err
	}
	if err := w.Watch(expanded); err != nil {
		_ = w.Close()
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(watchCtx, func() {
			if err := engine.Sim().Reload(watchCtx); err != nil {
				logging.Get("watcher").Warn("resource reload failed", "pack", expanded, "err", err)
			}
		})
	}()

	return func() {
		cancel()
		<-done
		_ = w.Close()
	}, nil
}

// runDashboard drives the simulation on a background goroutine while the
// dashboard renders. Quitting the dashboard stops the run.
func runDashboard(ctx context.Context, driver *sim.Driver, mgr *optimizer.Manager, engine *sim.Engine, cfg *config.Config) (sim.RunStats, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.New(tui.Options{
		Snapshot:  mgr.Snapshot,
		Engine:    engine.Stats,
		Cancel:    cancel,
		TargetFPS: cfg.Optimizer.TargetFPS,
		DeadBand:  cfg.Optimizer.DeadBand,
		Duration:  cfg.Sim.Duration,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	statsCh := make(chan sim.RunStats, 1)
	go func() {
		stats := driver.Run(runCtx, cfg.Sim.Duration)
		statsCh <- stats
		p.Send(tui.DoneMsg{Stats: stats})
	}()

	_, err := p.Run()
	cancel()
	stats := <-statsCh
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return stats, fmt.Errorf("dashboard failed: %w", err)
	}
	return stats, nil
}

func printSummary(cmd *cobra.Command, s runSummary) error {
	out := cmd.OutOrStdout()
	if viper.GetBool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	if getQuiet() {
		return nil
	}

	fmt.Fprintf(out, "\nRan %s ticks in %s (%.1f fps average)\n",
		humanize.Comma(int64(s.Run.Ticks)), s.Run.Elapsed.Round(time.Millisecond), s.Run.FPS())
	fmt.Fprintf(out, "Render distance: %d (last window %d fps)\n",
		s.Optimizer.RenderDistance, s.Optimizer.LastWindow.FPS)
	fmt.Fprintf(out, "Entities updated: %s, rendered: %s, chunks activated: %s\n",
		humanize.Comma(int64(s.Engine.EntityUpdates)),
		humanize.Comma(int64(s.Engine.RenderedEntities)),
		humanize.Comma(int64(s.Engine.ChunkLoads)))
	fmt.Fprintf(out, "Textures: %d live, %d freed, %d double deletes\n",
		s.Engine.LiveTextures, s.Engine.TextureDeletes, s.Engine.DoubleDeletes)
	for _, p := range s.Optimizer.Pools {
		fmt.Fprintf(out, "  %-14s workers %-3d completed %-8s dropped %d\n",
			p.Name, p.Workers, humanize.Comma(int64(p.Completed)), p.Dropped)
	}
	if s.Shutdown != "" {
		fmt.Fprintf(out, "Shutdown: %s\n", s.Shutdown)
	}
	return nil
}

func durationLabel(d time.Duration) string {
	if d <= 0 {
		return "until interrupted"
	}
	return "for " + d.String()
}
