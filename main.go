// inkframe runs an e-ink board: a launcher menu to pick an app, and the
// picked app's update, draw and sleep cycle across reboots.
//
// Usage:
//
//	inkframe [flags]                 boot: launcher or the saved app
//	inkframe state show|clear|set    inspect or change the saved app
//	inkframe render <app>            one cycle on the simulator, as PNG
//	inkframe version
//
// Flags:
//
//	--config string   Path to configuration file (default: search path)
//	--verbose         Enable debug logging
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/apps/catalog"
	"gitlab.com/tinyland/lab/inkframe/pkg/cache"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/device"
	"gitlab.com/tinyland/lab/inkframe/pkg/device/periph"
	"gitlab.com/tinyland/lab/inkframe/pkg/device/sim"
	"gitlab.com/tinyland/lab/inkframe/pkg/driver"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/health"
	"gitlab.com/tinyland/lab/inkframe/pkg/launcher"
	"gitlab.com/tinyland/lab/inkframe/pkg/logging"
	"gitlab.com/tinyland/lab/inkframe/pkg/network"
	"gitlab.com/tinyland/lab/inkframe/pkg/schedule"
	"gitlab.com/tinyland/lab/inkframe/pkg/sensor"
	"gitlab.com/tinyland/lab/inkframe/pkg/state"
	"gitlab.com/tinyland/lab/inkframe/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// exitRestart asks the service manager to start the process again.
const exitRestart = 75

// Simulator panel size when the config leaves it unset.
const (
	defaultWidth  = 600
	defaultHeight = 448
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return 0
	case errors.Is(err, device.ErrRestart):
		return exitRestart
	default:
		fmt.Fprintf(os.Stderr, "inkframe: %v\n", err)
		return 1
	}
}

// options are the persistent flags.
type options struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "inkframe",
		Short:         "E-ink board launcher and apps",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(
		newStateCmd(opts),
		newRenderCmd(opts),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger. The returned
// function closes the log file.
func setup(opts *options) (*config.Config, *slog.Logger, func() error, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFromFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:   cfg.General.LogLevel,
		Verbose: opts.verbose,
		File:    cfg.General.LogFile,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}

func runBoot(ctx context.Context, opts *options) error {
	cfg, logger, closeLog, err := setup(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("starting inkframe", "version", version, "backend", cfg.Hardware.Backend)
	for _, w := range cfg.Warnings() {
		logger.Warn("config", "warning", w)
	}

	if pid := cfg.General.PIDFile; pid != "" {
		if err := health.AcquirePID(pid); err != nil {
			return err
		}
		defer func() {
			if err := health.ReleasePID(pid); err != nil {
				logger.Warn("releasing pid file failed", "error", err)
			}
		}()
	}

	board, err := openBoard(cfg, logger)
	if err != nil {
		return err
	}
	if board.Close != nil {
		defer func() {
			if err := board.Close(); err != nil {
				logger.Warn("closing board failed", "error", err)
			}
		}()
	}

	b := board.Panel.Bounds()
	canvas := graphics.NewCanvas(b.Dx(), b.Dy(), board.Panel)
	env := newEnv(cfg, logger)

	d := driver.New(driver.Config{
		Registry:   catalog.Default(cfg),
		Store:      state.NewStore(cfg.General.StateFile, logger),
		Board:      board,
		Surface:    canvas,
		Env:        env,
		Network:    newConnector(cfg, board, env.Fetch, logger),
		HealthFile: cfg.General.HealthFile,
		Splash:     true,
		Launcher: []launcher.Option{
			launcher.WithPollInterval(cfg.Hardware.PollInterval.Duration),
			launcher.WithRestartDelay(cfg.Hardware.RestartDelay.Duration),
		},
		Logger: logger,
	})
	err = d.Boot(ctx)
	if errors.Is(err, device.ErrRestart) {
		logger.Info("exiting for restart", "code", exitRestart)
	}
	return err
}

// openBoard returns the configured hardware backend. The simulator sleeps
// on a timer and restarts by exiting.
func openBoard(cfg *config.Config, logger *slog.Logger) (*device.Board, error) {
	if cfg.Hardware.Backend == "sim" {
		w, h := panelSize(cfg)
		board := sim.New(w, h).Device()
		board.Sleeper = device.TimerSleeper{}
		board.Restarter = device.ExitRestarter{}
		return board, nil
	}
	return periph.Open(cfg.Hardware, logger)
}

func panelSize(cfg *config.Config) (int, int) {
	w, h := cfg.Hardware.Width, cfg.Hardware.Height
	if w <= 0 || h <= 0 {
		return defaultWidth, defaultHeight
	}
	return w, h
}

// newEnv builds the app environment minus the surface, which the caller
// provides.
func newEnv(cfg *config.Config, logger *slog.Logger) apps.Env {
	env := apps.Env{
		Storage: storage.New(storage.Config{
			MountPoint: cfg.Storage.MountPoint,
			Device:     cfg.Storage.Device,
			FSType:     cfg.Storage.FSType,
		}),
		Fetch: fetch.NewClient(
			fetch.WithLogger(logger),
			fetch.WithUserAgent("inkframe/"+version),
		),
		Sensor:   sensor.NewBoard(""),
		Schedule: schedule.Policy{DayStart: cfg.Schedule.DayStart, DayEnd: cfg.Schedule.DayEnd},
		Logger:   logger,
	}

	store, err := cache.NewStore(cache.StoreConfig{Dir: cfg.General.CacheDir})
	if err != nil {
		logger.Warn("payload cache disabled", "dir", cfg.General.CacheDir, "error", err)
	} else {
		env.Cache = store
	}
	return env
}

func newConnector(cfg *config.Config, board *device.Board, client *fetch.Client, logger *slog.Logger) *network.Connector {
	probeURL := cfg.Network.ProbeURL
	c := &network.Connector{
		SSID:     cfg.Network.SSID,
		Password: cfg.Network.Password,
		Joiner:   network.NMCLI{},
		LED:      board.Network,
		Warn:     board.Warn,
		Timeout:  cfg.Network.ConnectTimeout.Duration,
		Logger:   logger.With(slog.String("component", "network")),
	}
	if probeURL != "" {
		c.Prober = network.ProbeFunc(func(ctx context.Context) error {
			_, err := client.Bytes(ctx, probeURL)
			return err
		})
	}
	return c
}
