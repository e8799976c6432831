package graphics

import (
	"image"

	"github.com/disintegration/imaging"
)

// Fit scales img down to fit within maxW x maxH, keeping its aspect ratio.
// Images that already fit are returned unmodified.
func Fit(img image.Image, maxW, maxH int) image.Image {
	if img == nil {
		return nil
	}
	if maxW <= 0 || maxH <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

// Center returns the offset that centres an image of size w x h inside a
// box of size boxW x boxH.
func Center(w, h, boxW, boxH int) (int, int) {
	return (boxW - w) / 2, (boxH - h) / 2
}
