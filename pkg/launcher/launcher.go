// Package launcher is the app picker. It draws the menu, waits for a
// button, persists the choice and restarts the board so the next boot runs
// the chosen app.
package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/device"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/state"
)

// State is a step of the launcher.
type State int

const (
	ShowMenu State = iota
	AwaitInput
	PersistSelection
	RestartDevice
)

func (s State) String() string {
	switch s {
	case ShowMenu:
		return "show-menu"
	case AwaitInput:
		return "await-input"
	case PersistSelection:
		return "persist-selection"
	case RestartDevice:
		return "restart-device"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Default timings.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultRestartDelay = 500 * time.Millisecond
)

// Launcher runs the menu once. It is not reusable.
type Launcher struct {
	registry *apps.Registry
	store    *state.Store
	board    *device.Board
	surface  graphics.Surface
	logger   *slog.Logger

	poll         time.Duration
	restartDelay time.Duration

	state    State
	selected *apps.Binding
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithPollInterval sets how often the buttons are sampled.
func WithPollInterval(d time.Duration) Option {
	return func(l *Launcher) {
		if d > 0 {
			l.poll = d
		}
	}
}

// WithRestartDelay sets the pause between saving and restarting.
func WithRestartDelay(d time.Duration) Option {
	return func(l *Launcher) {
		if d >= 0 {
			l.restartDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a launcher in the ShowMenu state.
func New(registry *apps.Registry, store *state.Store, board *device.Board, surface graphics.Surface, opts ...Option) *Launcher {
	l := &Launcher{
		registry:     registry,
		store:        store,
		board:        board,
		surface:      surface,
		logger:       slog.New(slog.DiscardHandler),
		poll:         DefaultPollInterval,
		restartDelay: DefaultRestartDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(slog.String("component", "launcher"))
	return l
}

// State returns the current step.
func (l *Launcher) State() State {
	return l.state
}

// Selected returns the binding chosen in AwaitInput.
func (l *Launcher) Selected() (apps.Binding, bool) {
	if l.selected == nil {
		return apps.Binding{}, false
	}
	return *l.selected, true
}

// Run drives the launcher to RestartDevice and returns whatever the
// restarter returns. On real hardware a reboot never returns. Cancelling
// ctx while waiting for a button returns ctx.Err().
func (l *Launcher) Run(ctx context.Context) error {
	for {
		l.logger.Debug("state", "state", l.state)
		switch l.state {
		case ShowMenu:
			l.showMenu(ctx)
			l.state = AwaitInput

		case AwaitInput:
			b, err := l.awaitInput(ctx)
			if err != nil {
				return err
			}
			l.selected = &b
			l.state = PersistSelection

		case PersistSelection:
			l.persist()
			l.state = RestartDevice

		case RestartDevice:
			return l.restart(ctx)

		default:
			return fmt.Errorf("launcher: invalid state %s", l.state)
		}
	}
}

func (l *Launcher) showMenu(ctx context.Context) {
	DrawMenu(l.surface, l.registry.Bindings())
	l.setLED(l.board.Warn, true)
	if err := l.surface.Update(ctx); err != nil {
		// The buttons still work without a picture.
		l.logger.Error("menu refresh failed", "error", err)
	}
	l.setLED(l.board.Warn, false)
}

// awaitInput polls the bound buttons in order until one is down. The first
// pressed button in binding order wins.
func (l *Launcher) awaitInput(ctx context.Context) (apps.Binding, error) {
	bindings := l.registry.Bindings()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		for _, b := range bindings {
			down, err := l.board.Buttons.Pressed(b.Button)
			if err != nil {
				l.logger.Debug("button read failed", "button", b.Button, "error", err)
				continue
			}
			if down {
				l.logger.Info("app selected", "button", b.Button, "app", b.ID)
				return b, nil
			}
		}
		select {
		case <-ctx.Done():
			return apps.Binding{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Launcher) persist() {
	b := *l.selected
	l.setLED(l.board.ButtonLED(b.Button), true)
	if err := l.store.Save(state.AppState{Run: string(b.ID)}); err != nil {
		// The next boot finds no state and shows the menu again.
		l.logger.Error("saving selection failed", "app", b.ID, "error", err)
		l.setLED(l.board.Warn, true)
	}
}

func (l *Launcher) restart(ctx context.Context) error {
	if l.restartDelay > 0 {
		t := time.NewTimer(l.restartDelay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	l.logger.Info("restarting")
	return l.board.Restarter.Restart()
}

func (l *Launcher) setLED(led device.LED, on bool) {
	if led == nil {
		return
	}
	if err := led.Set(on); err != nil {
		l.logger.Debug("LED write failed", "error", err)
	}
}
