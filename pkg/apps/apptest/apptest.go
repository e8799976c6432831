// Package apptest builds simulated boards and storage cards for app tests.
package apptest

import (
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/device/sim"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/storage"
)

// Fixture is an Env wired to a simulated board and a card in a temp dir.
type Fixture struct {
	Env    apps.Env
	Board  *sim.Board
	Canvas *graphics.Canvas

	// Card is the directory standing in for the mounted card.
	Card string
}

// Option adjusts a fixture before it is returned.
type Option func(*Fixture)

// WithSize sets the panel size. The default is 600x448.
func WithSize(w, h int) Option {
	return func(f *Fixture) {
		f.Board = sim.New(w, h)
		f.Canvas = graphics.NewCanvas(w, h, f.Board.Panel)
		f.Env.Surface = f.Canvas
	}
}

// WithoutCard leaves Env.Storage nil.
func WithoutCard() Option {
	return func(f *Fixture) { f.Env.Storage = nil }
}

// WithClock fixes Env.Now.
func WithClock(now time.Time) Option {
	return func(f *Fixture) { f.Env.Now = func() time.Time { return now } }
}

// New returns a fixture with an empty card.
func New(t *testing.T, opts ...Option) *Fixture {
	t.Helper()
	card := t.TempDir()
	board := sim.New(600, 448)
	canvas := graphics.NewCanvas(600, 448, board.Panel)
	f := &Fixture{
		Board:  board,
		Canvas: canvas,
		Card:   card,
		Env: apps.Env{
			Surface: canvas,
			Storage: storage.New(storage.Config{MountPoint: card}),
			Logger:  slog.New(slog.DiscardHandler),
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	f.Env = f.Env.WithDefaults()
	return f
}

// WriteJPEG writes a w x h image of a single colour to name under the card
// and returns its path.
func (f *Fixture) WriteJPEG(t *testing.T, name string, w, h int, c color.Color) string {
	t.Helper()
	path := filepath.Join(f.Card, name)
	WriteJPEG(t, path, w, h, c)
	return path
}

// WriteJPEG writes a w x h image of a single colour to path.
func WriteJPEG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	if err := jpeg.Encode(fh, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatal(err)
	}
}

// JPEGBytes encodes a w x h image of a single colour.
func JPEGBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.jpg")
	WriteJPEG(t, path, w, h, c)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

// Share returns the fraction of pixels in r that quantise to pen.
func Share(c *graphics.Canvas, r image.Rectangle, pen graphics.Pen) float64 {
	frame := c.Frame()
	r = r.Intersect(frame.Bounds())
	if r.Empty() {
		return 0
	}
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if frame.ColorIndexAt(x, y) == uint8(pen) {
				n++
			}
		}
	}
	return float64(n) / float64(r.Dx()*r.Dy())
}
