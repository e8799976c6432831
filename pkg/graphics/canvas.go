// Package graphics is the drawing surface apps render into. A Canvas keeps
// an RGBA frame, draws with pens, and on Update quantises the frame to the
// eight-colour e-ink palette before handing it to the panel.
package graphics

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// Pen selects a drawing colour. The first eight pens are the panel's
// native colours; CreatePen adds more.
type Pen int

const (
	Black Pen = iota
	White
	Green
	Blue
	Red
	Yellow
	Orange
	Taupe
)

// Palette is the set of colours the panel can show, indexed by Pen.
var Palette = color.Palette{
	color.RGBA{0, 0, 0, 255},
	color.RGBA{255, 255, 255, 255},
	color.RGBA{0, 255, 0, 255},
	color.RGBA{0, 0, 255, 255},
	color.RGBA{255, 0, 0, 255},
	color.RGBA{255, 255, 0, 255},
	color.RGBA{255, 140, 0, 255},
	color.RGBA{170, 150, 120, 255},
}

// Sink receives finished frames. device.Panel satisfies it.
type Sink interface {
	Show(ctx context.Context, img image.Image) error
}

// Surface is what apps draw on.
type Surface interface {
	Bounds() (w, h int)
	SetPen(p Pen)
	CreatePen(r, g, b uint8) Pen
	Clear()
	Rectangle(x, y, w, h int)
	Text(s string, x, y, wrap int, scale float64)
	MeasureText(s string, scale float64) int
	DrawImage(img image.Image, x, y int)
	Update(ctx context.Context) error
}

// Canvas implements Surface over an in-memory frame.
type Canvas struct {
	frame *image.RGBA
	pens  []color.RGBA
	pen   Pen
	sink  Sink
}

// NewCanvas returns a white canvas of the given size that flushes to sink.
func NewCanvas(w, h int, sink Sink) *Canvas {
	c := &Canvas{
		frame: image.NewRGBA(image.Rect(0, 0, w, h)),
		sink:  sink,
		pen:   White,
	}
	for _, p := range Palette {
		c.pens = append(c.pens, p.(color.RGBA))
	}
	c.Clear()
	c.pen = Black
	return c
}

// Bounds returns the canvas width and height.
func (c *Canvas) Bounds() (int, int) {
	b := c.frame.Bounds()
	return b.Dx(), b.Dy()
}

// SetPen selects the colour for subsequent drawing. Unknown pens draw black.
func (c *Canvas) SetPen(p Pen) {
	if p < 0 || int(p) >= len(c.pens) {
		p = Black
	}
	c.pen = p
}

// CreatePen registers an arbitrary colour. It is shown as the nearest
// palette colour.
func (c *Canvas) CreatePen(r, g, b uint8) Pen {
	rgba := color.RGBA{r, g, b, 255}
	for i, existing := range c.pens {
		if existing == rgba {
			return Pen(i)
		}
	}
	c.pens = append(c.pens, rgba)
	return Pen(len(c.pens) - 1)
}

// Color returns the colour of the current pen.
func (c *Canvas) Color() color.RGBA {
	return c.pens[c.pen]
}

// Clear fills the whole canvas with the current pen.
func (c *Canvas) Clear() {
	draw.Draw(c.frame, c.frame.Bounds(), image.NewUniform(c.Color()), image.Point{}, draw.Src)
}

// Rectangle fills a rectangle with the current pen. It is clipped to the
// canvas.
func (c *Canvas) Rectangle(x, y, w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	r := image.Rect(x, y, x+w, y+h).Intersect(c.frame.Bounds())
	draw.Draw(c.frame, r, image.NewUniform(c.Color()), image.Point{}, draw.Src)
}

// DrawImage copies img with its top-left corner at (x, y).
func (c *Canvas) DrawImage(img image.Image, x, y int) {
	b := img.Bounds()
	r := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(c.frame, r, img, b.Min, draw.Over)
}

// Frame returns the current frame quantised to the panel palette.
func (c *Canvas) Frame() *image.Paletted {
	out := image.NewPaletted(c.frame.Bounds(), Palette)
	draw.Draw(out, out.Bounds(), c.frame, image.Point{}, draw.Src)
	return out
}

// At returns the unquantised colour at (x, y).
func (c *Canvas) At(x, y int) color.RGBA {
	return c.frame.RGBAAt(x, y)
}

// Update pushes the frame to the panel.
func (c *Canvas) Update(ctx context.Context) error {
	if c.sink == nil {
		return nil
	}
	if err := c.sink.Show(ctx, c.Frame()); err != nil {
		return fmt.Errorf("graphics: update panel: %w", err)
	}
	return nil
}
