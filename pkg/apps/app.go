// Package apps defines the App interface, the closed set of app
// identifiers, and the Registry the launcher and driver dispatch through.
// Each app lives in a subpackage and is registered by pkg/apps/catalog.
package apps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/cache"
	"gitlab.com/tinyland/lab/inkframe/pkg/fetch"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/schedule"
	"gitlab.com/tinyland/lab/inkframe/pkg/storage"
)

// ErrUnknownApp reports an identifier outside the registered set.
var ErrUnknownApp = errors.New("apps: unknown app")

// ID names an app in the persisted state.
type ID string

const (
	NASA     ID = "app_nasa"
	Pictures ID = "app_pictures"
	Weather  ID = "app_weather"
	News     ID = "app_news"
	Comic    ID = "app_xkcd"
)

// IDs lists every identifier in button order.
var IDs = []ID{NASA, Pictures, Weather, News, Comic}

// ParseID validates s against the closed set.
func ParseID(s string) (ID, error) {
	for _, id := range IDs {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownApp, s)
}

// App is one full-screen application. The driver calls Update, then Draw,
// then sleeps for Interval, forever.
type App interface {
	// ID returns the identifier the app is registered under.
	ID() ID

	// Update fetches or loads new content. A failure leaves the previous
	// content in place.
	Update(ctx context.Context) error

	// Draw renders the current content and refreshes the panel.
	Draw(ctx context.Context) error

	// Interval is the time to sleep after a cycle that ran at now.
	Interval(now time.Time) time.Duration
}

// Thermometer reads the board temperature in degrees Celsius.
type Thermometer interface {
	Temperature(ctx context.Context) (float64, error)
}

// Env is the shared context injected into every app at construction.
type Env struct {
	Surface  graphics.Surface
	Storage  *storage.Medium
	Fetch    *fetch.Client
	Cache    *cache.Store
	Sensor   Thermometer
	Schedule schedule.Policy
	Logger   *slog.Logger
	Now      func() time.Time
}

// WithDefaults fills unset fields that have a safe zero behaviour.
func (e Env) WithDefaults() Env {
	if e.Logger == nil {
		e.Logger = slog.New(slog.DiscardHandler)
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Fetch == nil {
		e.Fetch = fetch.NewClient(fetch.WithLogger(e.Logger))
	}
	if e.Schedule == (schedule.Policy{}) {
		e.Schedule = schedule.DefaultPolicy
	}
	return e
}

// Size returns the surface width and height.
func (e Env) Size() (int, int) {
	return e.Surface.Bounds()
}
