// Package pictures shows a random JPEG from the storage card with its file
// name as a caption.
package pictures

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/storage"
)

var extensions = []string{".jpg", ".jpeg"}

// App is the picture frame.
type App struct {
	env        apps.Env
	cfg        config.PicturesConfig
	jpeg       *graphics.JPEG
	storageErr error

	// Current is the path shown by the last successful Update.
	Current string
}

// New mounts the card and returns the app. A card that cannot be mounted
// is not an error here; every Update reports it instead.
func New(env apps.Env, cfg config.PicturesConfig) *App {
	env = env.WithDefaults()
	a := &App{
		env:  env,
		cfg:  cfg,
		jpeg: graphics.NewJPEG(env.Surface),
	}
	if err := apps.MountStorage(env); err != nil {
		env.Logger.Warn("pictures: storage unavailable", "error", err)
		a.storageErr = err
	}
	return a
}

// Factory adapts New to apps.Factory.
func Factory(cfg config.PicturesConfig) apps.Factory {
	return func(env apps.Env) (apps.App, error) {
		return New(env, cfg), nil
	}
}

func (a *App) ID() apps.ID { return apps.Pictures }

// Update picks a random picture and renders it with its caption. An empty
// card is logged and leaves the screen as it is.
func (a *App) Update(ctx context.Context) error {
	if a.storageErr != nil {
		return a.storageErr
	}
	path, err := a.env.Storage.PickRandom(a.cfg.Dir, extensions...)
	if errors.Is(err, storage.ErrNoFiles) {
		a.env.Logger.Info("pictures: no JPEG files found", "dir", a.env.Storage.Path(a.cfg.Dir))
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.jpeg.OpenFile(path); err != nil {
		return err
	}

	s := a.env.Surface
	s.SetPen(graphics.White)
	s.Clear()
	if err := a.jpeg.Decode(0, 0, graphics.ScaleFull, false); err != nil {
		return err
	}
	apps.DrawCaption(s, Caption(path))

	a.Current = path
	a.env.Logger.Debug("pictures: showing", "file", filepath.Base(path))
	return nil
}

func (a *App) Draw(ctx context.Context) error {
	return a.env.Surface.Update(ctx)
}

func (a *App) Interval(now time.Time) time.Duration {
	return a.env.Schedule.At(now, a.cfg.Day.Duration, a.cfg.Night.Duration)
}

// Caption turns a file path into display text: the base name without its
// extension, with underscores as spaces.
func Caption(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.ReplaceAll(name, "_", " ")
}
