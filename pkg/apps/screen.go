package apps

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
	"gitlab.com/tinyland/lab/inkframe/pkg/storage"
)

// CaptionHeight is the height of the strip DrawCaption reserves at the
// bottom of the screen.
const CaptionHeight = 25

// MountStorage mounts env.Storage. Apps call it once at construction and
// keep the result: a card that is missing at boot stays missing until the
// next restart.
func MountStorage(env Env) error {
	if env.Storage == nil {
		return fmt.Errorf("%w: no card configured", storage.ErrUnavailable)
	}
	return env.Storage.Mount()
}

// DrawNotice fills the screen with a title bar and a wrapped message. Apps
// use it when they cannot show their content at all.
func DrawNotice(s graphics.Surface, title, msg string) {
	w, h := s.Bounds()
	s.SetPen(graphics.White)
	s.Clear()
	s.SetPen(graphics.Orange)
	s.Rectangle(0, 0, w, 50)
	s.SetPen(graphics.White)
	s.Text(title, 10, 12, w-20, 2)
	s.SetPen(graphics.Black)
	s.Text(msg, 10, 70, w-20, 2)
	s.SetPen(graphics.Taupe)
	s.Rectangle(0, h-10, w, 10)
}

// DrawCaption draws text in a white strip along the bottom edge.
func DrawCaption(s graphics.Surface, text string) {
	w, h := s.Bounds()
	s.SetPen(graphics.White)
	s.Rectangle(0, h-CaptionHeight, w, CaptionHeight)
	s.SetPen(graphics.Black)
	s.Text(text, 5, h-20, w, 2)
}

// DrawUpdated writes a small "updated N ago" note in the bottom right
// corner.
func DrawUpdated(s graphics.Surface, fetched, now time.Time) {
	if fetched.IsZero() {
		return
	}
	w, h := s.Bounds()
	note := "updated " + humanize.RelTime(fetched, now, "ago", "from now")
	tw := s.MeasureText(note, 1)
	s.SetPen(graphics.Black)
	s.Text(note, w-tw-5, h-15, w, 1)
}
