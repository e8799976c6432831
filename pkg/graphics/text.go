package graphics

import (
	"image"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// LineHeight is the height of one line of text at scale.
func LineHeight(scale float64) int {
	return scaled(face.Metrics().Height.Ceil(), scale)
}

// MeasureText returns the width of s in pixels at scale.
func (c *Canvas) MeasureText(s string, scale float64) int {
	return measure(s, scale)
}

func measure(s string, scale float64) int {
	return scaled(font.MeasureString(face, Fold(s)).Ceil(), scale)
}

func scaled(n int, scale float64) int {
	if scale <= 0 {
		scale = 1
	}
	return int(math.Round(float64(n) * scale))
}

// Text draws s with its top-left corner at (x, y). Lines longer than wrap
// pixels break at spaces; wrap <= 0 disables wrapping. Newlines always
// break.
func (c *Canvas) Text(s string, x, y, wrap int, scale float64) {
	lh := LineHeight(scale)
	for i, line := range Wrap(Fold(s), wrap, scale) {
		c.textLine(line, x, y+i*lh, scale)
	}
}

func (c *Canvas) textLine(s string, x, y int, scale float64) {
	if s == "" {
		return
	}
	m := face.Metrics()
	w := font.MeasureString(face, s).Ceil()
	h := m.Height.Ceil()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, m.Ascent.Ceil()),
	}
	d.DrawString(s)

	var src image.Image = mask
	dw, dh := scaled(w, scale), scaled(h, scale)
	if dw != w || dh != h {
		big := image.NewAlpha(image.Rect(0, 0, dw, dh))
		xdraw.NearestNeighbor.Scale(big, big.Bounds(), mask, mask.Bounds(), draw.Src, nil)
		src = big
	}

	dst := image.Rect(x, y, x+dw, y+dh)
	draw.DrawMask(c.frame, dst, image.NewUniform(c.Color()), image.Point{}, src, image.Point{}, draw.Over)
}

// Wrap splits s into lines no wider than wrap pixels at scale. A single
// word wider than wrap gets a line of its own.
func Wrap(s string, wrap int, scale float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		if wrap <= 0 {
			lines = append(lines, para)
			continue
		}
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := words[0]
		for _, word := range words[1:] {
			next := cur + " " + word
			if measure(next, scale) > wrap {
				lines = append(lines, cur)
				cur = word
				continue
			}
			cur = next
		}
		lines = append(lines, cur)
	}
	return lines
}

// folds spells out characters the bitmap font lacks.
var folds = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'Ä': "Ae", 'Ö': "Oe", 'Ü': "Ue", 'ß': "ss",
	'é': "e", 'è': "e", 'ê': "e", 'á': "a", 'à': "a", 'â': "a", 'ó': "o", 'ò': "o",
	'ô': "o", 'í': "i", 'ì': "i", 'ú': "u", 'ù': "u", 'ç': "c", 'ñ': "n",
	'°': " ", '–': "-", '—': "-", '‘': "'", '’': "'", '“': "\"", '”': "\"", '…': "...",
}

// Fold rewrites s to printable ASCII. Unknown characters become '?'.
func Fold(s string) string {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		case folds[r] != "":
			b.WriteString(folds[r])
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
