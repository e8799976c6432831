// Package comic shows the daily XKCD strip, pre-rendered for the panel by
// a feed-to-image service and cached on the storage card.
package comic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

// Native panel size of the default feed image.
const (
	nativeWidth  = 600
	nativeHeight = 448
)

// App is the daily comic.
type App struct {
	env        apps.Env
	cfg        config.ComicConfig
	jpeg       *graphics.JPEG
	storageErr error
}

// New mounts the card and returns the app.
func New(env apps.Env, cfg config.ComicConfig) *App {
	env = env.WithDefaults()
	a := &App{env: env, cfg: cfg, jpeg: graphics.NewJPEG(env.Surface)}
	if err := apps.MountStorage(env); err != nil {
		env.Logger.Warn("comic: storage unavailable", "error", err)
		a.storageErr = err
	}
	return a
}

// Factory adapts New to apps.Factory.
func Factory(cfg config.ComicConfig) apps.Factory {
	return func(env apps.Env) (apps.App, error) {
		return New(env, cfg), nil
	}
}

func (a *App) ID() apps.ID { return apps.Comic }

// Update downloads today's strip and renders it. When the download fails
// the copy already on the card is shown, and the download error is
// returned.
func (a *App) Update(ctx context.Context) error {
	if a.storageErr != nil {
		return a.storageErr
	}
	w, h := a.env.Size()
	url := URL(a.cfg.URL, w, h)
	path := a.env.Storage.Path(a.cfg.File)

	_, fetchErr := a.env.Fetch.Download(ctx, url, path)
	if fetchErr != nil {
		if !a.env.Storage.Exists(a.cfg.File) {
			return fmt.Errorf("comic: %w", fetchErr)
		}
		a.env.Logger.Warn("comic: download failed, showing previous strip", "error", fetchErr)
	}

	if err := a.jpeg.OpenFile(path); err != nil {
		return err
	}
	s := a.env.Surface
	s.SetPen(graphics.White)
	s.Clear()
	iw, ih := a.jpeg.Size()
	x, y := graphics.Center(iw, ih, w, h)
	if err := a.jpeg.Decode(max(x, 0), max(y, 0), graphics.ScaleFull, false); err != nil {
		return err
	}
	if fetchErr != nil {
		return fmt.Errorf("comic: %w", fetchErr)
	}
	return nil
}

func (a *App) Draw(ctx context.Context) error {
	return a.env.Surface.Update(ctx)
}

func (a *App) Interval(now time.Time) time.Duration {
	return a.env.Schedule.At(now, a.cfg.Day.Duration, a.cfg.Night.Duration)
}

// URL returns the feed image for a w x h panel. The feed publishes the
// default file at 600x448 and other sizes as xkcd-<W>x<H>-<name>.
func URL(base string, w, h int) string {
	if w == nativeWidth && h == nativeHeight {
		return base
	}
	return strings.Replace(base, "xkcd-", fmt.Sprintf("xkcd-%dx%d-", w, h), 1)
}
