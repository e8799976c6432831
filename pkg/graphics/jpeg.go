package graphics

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
)

// ErrDecode reports an image that could not be read or decoded.
var ErrDecode = errors.New("graphics: decode failed")

// Scale shrinks a decoded image by a power of two.
type Scale int

const (
	ScaleFull    Scale = 1
	ScaleHalf    Scale = 2
	ScaleQuarter Scale = 4
	ScaleEighth  Scale = 8
)

// JPEG decodes image files onto a Surface.
type JPEG struct {
	surface Surface
	img     image.Image
	path    string
}

// NewJPEG returns a decoder that draws on s.
func NewJPEG(s Surface) *JPEG {
	return &JPEG{surface: s}
}

// OpenFile reads and decodes the image at path.
func (j *JPEG) OpenFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	j.img, j.path = img, path
	return nil
}

// Open uses an already decoded image.
func (j *JPEG) Open(img image.Image) {
	j.img, j.path = img, ""
}

// Image returns the open image, or nil.
func (j *JPEG) Image() image.Image {
	return j.img
}

// Size returns the dimensions of the open image.
func (j *JPEG) Size() (int, int) {
	if j.img == nil {
		return 0, 0
	}
	b := j.img.Bounds()
	return b.Dx(), b.Dy()
}

// Decode draws the open image at (x, y), shrunk by scale. With dither the
// image is error-diffused onto the panel palette first.
func (j *JPEG) Decode(x, y int, scale Scale, dither bool) error {
	if j.img == nil {
		return fmt.Errorf("%w: no image open", ErrDecode)
	}
	img := j.img
	if scale > ScaleFull {
		w, h := j.Size()
		w, h = max(w/int(scale), 1), max(h/int(scale), 1)
		img = imaging.Resize(img, w, h, imaging.Box)
	}
	if dither {
		img = Dither(img)
	}
	j.surface.DrawImage(img, x, y)
	return nil
}

// Dither quantises img to Palette with Floyd-Steinberg error diffusion.
func Dither(img image.Image) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), Palette)
	draw.FloydSteinberg.Draw(out, out.Bounds(), img, b.Min)
	return out
}
