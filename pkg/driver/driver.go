// Package driver decides at boot whether to show the launcher or run the
// saved app, and runs the app's update, draw and sleep cycle.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/device"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/health"
	"gitlab.com/tinyland/lab/inkframe/pkg/launcher"
	"gitlab.com/tinyland/lab/inkframe/pkg/state"
)

// DefaultCycleTimeout bounds one Update or Draw call.
const DefaultCycleTimeout = 3 * time.Minute

// Connector brings the network up. network.Connector implements it.
type Connector interface {
	Connect(ctx context.Context) error
}

// Config wires a Driver.
type Config struct {
	Registry *apps.Registry
	Store    *state.Store
	Board    *device.Board
	Surface  graphics.Surface

	// Env is passed to the resolved app. Its Surface is replaced by
	// Config.Surface.
	Env apps.Env

	// Network, when set, is connected before the first cycle.
	Network Connector

	// HealthFile, when set, receives a status record after every cycle.
	HealthFile string

	// Splash shows the "Initializing..." screen before an app starts.
	Splash bool

	CycleTimeout time.Duration
	Launcher     []launcher.Option
	Logger       *slog.Logger
	Now          func() time.Time
}

// Driver runs one boot.
type Driver struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New returns a driver. Registry, Store, Board and Surface are required.
func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = DefaultCycleTimeout
	}
	cfg.Env.Surface = cfg.Surface
	if cfg.Env.Logger == nil {
		cfg.Env.Logger = cfg.Logger
	}
	if cfg.Env.Now == nil {
		cfg.Env.Now = cfg.Now
	}
	return &Driver{
		cfg:    cfg,
		logger: cfg.Logger.With(slog.String("component", "driver")),
		now:    cfg.Now,
	}
}

// Boot routes to the launcher or the saved app. The launcher is shown when
// the first and last buttons are held, when no app is saved, and when the
// saved app cannot be built. Boot returns when the launcher restarts the
// board or ctx ends.
func (d *Driver) Boot(ctx context.Context) error {
	if err := d.cfg.Board.ClearLEDs(); err != nil {
		d.logger.Debug("clearing LEDs failed", "error", err)
	}

	if d.chordHeld() {
		d.logger.Info("launcher chord held")
		return d.runLauncher(ctx)
	}

	st := d.cfg.Store.Load()
	if st.None() {
		d.logger.Info("no app saved")
		return d.runLauncher(ctx)
	}

	app, err := d.cfg.Registry.Resolve(st.Run, d.cfg.Env)
	if err != nil {
		if errors.Is(err, apps.ErrUnknownApp) {
			d.logger.Warn("saved app is unknown", "app", st.Run)
		} else {
			d.logger.Error("saved app failed to start", "app", st.Run, "error", err)
		}
		return d.runLauncher(ctx)
	}

	d.logger.Info("starting app", "app", app.ID())
	if d.cfg.Splash {
		if err := launcher.Splash(ctx, d.cfg.Surface); err != nil {
			d.logger.Warn("splash failed", "error", err)
		}
	}
	if d.cfg.Network != nil {
		if err := d.cfg.Network.Connect(ctx); err != nil {
			d.logger.Warn("network unavailable, continuing offline", "error", err)
		}
	}
	return d.Loop(ctx, app)
}

// chordHeld reports whether the first and last bound buttons are down.
func (d *Driver) chordHeld() bool {
	b := d.cfg.Registry.Bindings()
	if len(b) < 2 {
		return false
	}
	return d.cfg.Board.Held(b[0].Button, b[len(b)-1].Button)
}

func (d *Driver) runLauncher(ctx context.Context) error {
	opts := append([]launcher.Option{launcher.WithLogger(d.cfg.Logger)}, d.cfg.Launcher...)
	l := launcher.New(d.cfg.Registry, d.cfg.Store, d.cfg.Board, d.cfg.Surface, opts...)
	return l.Run(ctx)
}

// Loop runs app until ctx ends or the sleeper fails. A failed Update or
// Draw is logged and the cycle carries on: a failed Update still draws the
// previous content, and every cycle ends with the app's normal sleep.
func (d *Driver) Loop(ctx context.Context, app apps.App) error {
	logger := d.logger.With(slog.String("app", string(app.ID())))
	status := &health.Status{
		App:     string(app.ID()),
		PID:     os.Getpid(),
		Started: d.now(),
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		d.setLED(d.cfg.Board.Busy, true)
		updateErr := d.call(ctx, "update", app.Update)
		d.setLED(d.cfg.Board.Busy, false)
		if updateErr != nil {
			logger.Error("update failed", "error", updateErr)
		}

		d.setLED(d.cfg.Board.Warn, true)
		drawErr := d.call(ctx, "draw", app.Draw)
		d.setLED(d.cfg.Board.Warn, false)
		if drawErr != nil {
			logger.Error("draw failed", "error", drawErr)
		}

		now := d.now()
		interval := app.Interval(now)
		d.record(status, now, interval, errors.Join(updateErr, drawErr))
		logger.Info("cycle complete", "cycle", status.Cycles, "sleep", interval)

		if err := d.cfg.Board.Sleeper.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// call runs fn under the cycle timeout and turns a panic into an error.
func (d *Driver) call(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CycleTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Debug("recovered panic", "stage", name, "stack", string(debug.Stack()))
			err = fmt.Errorf("driver: %s panicked: %v", name, r)
		}
	}()
	return fn(ctx)
}

func (d *Driver) record(status *health.Status, now time.Time, interval time.Duration, err error) {
	status.Cycles++
	status.LastUpdate = now
	status.Interval = interval
	status.NextWake = now.Add(interval)
	status.LastError = ""
	if err != nil {
		status.Failures++
		status.LastError = err.Error()
	}
	if d.cfg.HealthFile == "" {
		return
	}
	if werr := health.Write(d.cfg.HealthFile, status); werr != nil {
		d.logger.Warn("writing health file failed", "error", werr)
	}
}

func (d *Driver) setLED(led device.LED, on bool) {
	if led == nil {
		return
	}
	if err := led.Set(on); err != nil {
		d.logger.Debug("LED write failed", "error", err)
	}
}
