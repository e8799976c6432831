package launcher

import (
	"context"
	"fmt"
	"image"

	"gitlab.com/tinyland/lab/inkframe/pkg/apps"
	"gitlab.com/tinyland/lab/inkframe/pkg/graphics"
)

// Reference geometry, from a 600x448 panel. Layout scales it to the
// actual panel and shrinks text until it fits.
const (
	refWidth      = 600
	refHeight     = 448
	refTitle      = 50
	refLeft       = 30
	refGapTop     = 38
	refGapBottom  = 70
	maxTitleScale = 4
	maxLabelScale = 3
	maxNoteScale  = 2
	minLabelScale = 0.5
	labelPad      = 5
)

// ReturnNote is printed at the foot of the menu.
const ReturnNote = "Hold A + E, then press Reset, to return to the Launcher"

// MenuLayout is the geometry of the launcher screen for one panel size.
type MenuLayout struct {
	Title      image.Rectangle
	TitleScale float64

	// Options and Highlights hold one row per binding: the orange box with
	// the label and the grey strip to its right. A highlight may be empty
	// on narrow panels.
	Options    []image.Rectangle
	Highlights []image.Rectangle
	LabelScale float64

	NoteX     int
	NoteY     int
	NoteScale float64
	NoteWrap  int
}

// Layout fits the menu for bindings onto s. On a 600x448 panel the boxes
// start 360 px above the bottom, step 60 px down and 50 px in from the
// right.
func Layout(s graphics.Surface, bindings []apps.Binding) MenuLayout {
	w, h := s.Bounds()
	var m MenuLayout
	n := len(bindings)

	titleH := max(h*refTitle/refHeight, 1)
	m.Title = image.Rect(0, 0, w, titleH)
	m.TitleScale = 1
	for sc := float64(maxTitleScale); sc >= 1; sc-- {
		if graphics.LineHeight(sc) <= titleH*21/20 && s.MeasureText(menuTitle, sc) <= w {
			m.TitleScale = sc
			break
		}
	}

	left := max(w*refLeft/refWidth, 1)
	m.NoteWrap = w - 2*left
	m.NoteScale = 1
	for sc := float64(maxNoteScale); sc >= 1; sc-- {
		if s.MeasureText(ReturnNote, sc) <= m.NoteWrap {
			m.NoteScale = sc
			break
		}
	}
	noteLines := len(graphics.Wrap(ReturnNote, m.NoteWrap, m.NoteScale))
	m.NoteY = h - noteLines*graphics.LineHeight(m.NoteScale) - 4
	m.NoteX = left
	if noteLines == 1 {
		m.NoteX = max((w-s.MeasureText(ReturnNote, m.NoteScale))/2, 0)
	}

	if n == 0 {
		return m
	}

	top := titleH + h*refGapTop/refHeight
	bottom := min(h-h*refGapBottom/refHeight, m.NoteY-4)
	span := max(bottom-top, n)
	// Rows are 5/6 box, 1/6 gap.
	step := max(span*6/(6*(n-1)+5), 1)
	boxH := max(step*5/6, 1)

	widths := make([]int, n)
	widest := 1
	for i, b := range bindings {
		widths[i] = s.MeasureText(OptionLabel(b), 1)
		widest = max(widest, widths[i])
	}
	sc := min(float64(maxLabelScale), float64(boxH-4)/float64(graphics.LineHeight(1)))
	if sc >= 1 {
		sc = float64(int(sc))
	}
	sc = min(sc, float64(w-2*left-2*labelPad)/float64(widest))
	m.LabelScale = max(sc, minLabelScale)
	need := func(i int) int { return int(float64(widths[i])*m.LabelScale) + 2*labelPad }

	// Boxes step in from the right as long as every label still fits.
	inset := w * 100 / refWidth
	stepIn := w * 50 / refWidth
	for i := range n {
		if w-inset-i*stepIn-left < need(i) {
			stepIn = 0
			break
		}
	}
	for i := range n {
		inset = min(inset, w-left-need(i))
	}
	inset = max(inset, left)

	for i := range n {
		y := top + i*step
		right := max(w-inset-i*stepIn, left+1)
		m.Options = append(m.Options, image.Rect(left, y, right, y+boxH))
		m.Highlights = append(m.Highlights, image.Rect(right, y, w-left, y+boxH))
	}
	return m
}

const menuTitle = "Launcher"

// DrawMenu renders the launcher into s without refreshing the panel. Each
// binding gets an orange option box that steps in from the right, with a
// light grey strip filling the rest of its row.
func DrawMenu(s graphics.Surface, bindings []apps.Binding) {
	w, _ := s.Bounds()
	m := Layout(s, bindings)

	s.SetPen(graphics.White)
	s.Clear()
	s.SetPen(graphics.Orange)
	s.Rectangle(0, 0, w, m.Title.Dy())
	s.SetPen(graphics.White)
	s.Text(menuTitle, max(w/2-s.MeasureText(menuTitle, m.TitleScale)/2, 0), m.Title.Dy()/5, w, m.TitleScale)

	highlight := s.CreatePen(220, 220, 220)
	lh := graphics.LineHeight(m.LabelScale)
	for i, b := range bindings {
		box := m.Options[i]
		s.SetPen(graphics.Orange)
		s.Rectangle(box.Min.X, box.Min.Y, box.Dx(), box.Dy())
		s.SetPen(graphics.White)
		s.Text(OptionLabel(b), box.Min.X+labelPad, box.Min.Y+max((box.Dy()-lh)/2, 0), 0, m.LabelScale)

		if hl := m.Highlights[i]; !hl.Empty() {
			s.SetPen(highlight)
			s.Rectangle(hl.Min.X, hl.Min.Y, hl.Dx(), hl.Dy())
		}
	}

	s.SetPen(graphics.Black)
	s.Text(ReturnNote, m.NoteX, m.NoteY, m.NoteWrap, m.NoteScale)
}

// OptionLabel is the text of one menu row, for example "B. Pictures".
func OptionLabel(b apps.Binding) string {
	return fmt.Sprintf("%s. %s", b.Button, b.Label)
}

// Splash shows the "Initializing..." screen and refreshes the panel.
func Splash(ctx context.Context, s graphics.Surface) error {
	w, h := s.Bounds()
	s.SetPen(graphics.White)
	s.Clear()
	s.SetPen(graphics.Black)
	s.Text("Initializing...", w*3/10, h*200/448, w, 4)

	note := "Please wait while the display is loading up the Launcher..."
	s.Text(note, max(w/2-s.MeasureText(note, 2)/2, 0), h-30, w, 2)
	return s.Update(ctx)
}
