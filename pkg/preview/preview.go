// Package preview shows a rendered frame in the terminal, so an app can be
// checked on a workstation without a panel attached.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/blacktop/go-termimg"
	"github.com/mattn/go-isatty"

	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

// ErrNotTerminal is returned by Show when the output is not a terminal.
var ErrNotTerminal = errors.New("preview: output is not a terminal")

// Renderer turns images into terminal escape sequences.
type Renderer struct {
	protocol Protocol
	cols     int
	rows     int
}

// NewRenderer returns a renderer that fits images into cols x rows cells.
func NewRenderer(p Protocol, cols, rows int) *Renderer {
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}
	return &Renderer{protocol: p, cols: cols, rows: rows}
}

func (r *Renderer) Protocol() Protocol { return r.protocol }

// Render returns the escape string for img.
func (r *Renderer) Render(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("preview: image is nil")
	}
	switch r.protocol {
	case None:
		return "", fmt.Errorf("preview: rendering is disabled (protocol=none)")
	case Kitty:
		return r.renderTermimg(img, termimg.Kitty)
	case ITerm2:
		return r.renderTermimg(img, termimg.ITerm2)
	case Sixel:
		return r.renderTermimg(img, termimg.Sixel)
	default:
		// Each cell shows two pixel rows.
		return Halfblock(graphics.Fit(img, r.cols, r.rows*2)), nil
	}
}

func (r *Renderer) renderTermimg(img image.Image, proto termimg.Protocol) (string, error) {
	ti := termimg.New(img)
	if ti == nil {
		return "", fmt.Errorf("preview: go-termimg failed to wrap image")
	}
	ti.Protocol(proto).Size(r.cols, r.rows).Scale(termimg.ScaleFit)
	s, err := ti.Render()
	if err != nil {
		return "", fmt.Errorf("preview: %s: %w", r.protocol, err)
	}
	return s, nil
}

// Show writes img to f when f is a terminal.
func (r *Renderer) Show(f *os.File, img image.Image) error {
	if !IsTerminal(f) {
		return ErrNotTerminal
	}
	return r.Write(f, img)
}

// Write renders img to w followed by a newline.
func (r *Renderer) Write(w io.Writer, img image.Image) error {
	s, err := r.Render(img)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, s+"\n")
	return err
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Halfblock renders img with upper half block characters in 24-bit colour:
// the top pixel of each cell is the foreground, the bottom pixel the
// background. One character per pixel column, one line per two rows.
func Halfblock(img image.Image) string {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(w * ((h + 1) / 2) * 40)
	for y := 0; y < h; y += 2 {
		if y > 0 {
			sb.WriteString("\x1b[0m\n")
		}
		for x := 0; x < w; x++ {
			top := rgb(img.At(b.Min.X+x, b.Min.Y+y))
			if y+1 >= h {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▀", top.R, top.G, top.B)
				continue
			}
			bot := rgb(img.At(b.Min.X+x, b.Min.Y+y+1))
			fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
	}
	sb.WriteString("\x1b[0m")
	return sb.String()
}

func rgb(c color.Color) color.RGBA {
	r, g, b, _ := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xff}
}
