// Package sim is an in-memory board. It backs the render command and the
// tests: buttons are pressed from code, LEDs and frames are recorded, and
// sleeping returns immediately.
package sim

import (
	"context"
	"image"
	"image/png"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"gitlab.com/tinyland/lab/inkframe/pkg/device"
)

// Board is a simulated device.Board with handles on every part.
type Board struct {
	Panel      *Panel
	Buttons    *Buttons
	ButtonLEDs [5]*LED
	Busy       *LED
	Warn       *LED
	Network    *NetworkLED
	Sleeper    *Sleeper
	Restarter  *Restarter
}

// New returns a simulated board with a w x h panel.
func New(w, h int) *Board {
	b := &Board{
		Panel:     &Panel{bounds: image.Rect(0, 0, w, h)},
		Buttons:   &Buttons{pressed: make(map[device.Button]bool), after: make(map[device.Button]int)},
		Busy:      &LED{},
		Warn:      &LED{},
		Network:   &NetworkLED{},
		Sleeper:   &Sleeper{},
		Restarter: &Restarter{},
	}
	for i := range b.ButtonLEDs {
		b.ButtonLEDs[i] = &LED{}
	}
	return b
}

// Device exposes the simulator through the device interfaces.
func (b *Board) Device() *device.Board {
	d := &device.Board{
		Panel:     b.Panel,
		Buttons:   b.Buttons,
		Busy:      b.Busy,
		Warn:      b.Warn,
		Network:   b.Network,
		Sleeper:   b.Sleeper,
		Restarter: b.Restarter,
	}
	for i, led := range b.ButtonLEDs {
		d.ButtonLEDs[i] = led
	}
	return d
}

// --- Panel ---

// Panel records every frame it is shown.
type Panel struct {
	bounds image.Rectangle

	mu     sync.Mutex
	frames []*image.NRGBA
}

// Bounds returns the panel size.
func (p *Panel) Bounds() image.Rectangle { return p.bounds }

// Show stores a copy of img.
func (p *Panel) Show(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, imaging.Clone(img))
	return nil
}

// Frames returns how many frames have been shown.
func (p *Panel) Frames() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Last returns the most recent frame, or nil.
func (p *Panel) Last() *image.NRGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return nil
	}
	return p.frames[len(p.frames)-1]
}

// SavePNG writes the most recent frame to path.
func (p *Panel) SavePNG(path string) error {
	img := p.Last()
	if img == nil {
		img = image.NewNRGBA(p.bounds)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// --- Buttons ---

// Buttons holds button levels set from code.
type Buttons struct {
	mu      sync.Mutex
	pressed map[device.Button]bool
	after   map[device.Button]int
	polls   int
}

// Press holds b down until Release.
func (s *Buttons) Press(b device.Button) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed[b] = true
}

// Release lets b go.
func (s *Buttons) Release(b device.Button) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pressed, b)
	delete(s.after, b)
}

// PressAfter makes b read as pressed once it has been sampled n times.
func (s *Buttons) PressAfter(b device.Button, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after[b] = n
}

// Polls returns the number of samples taken.
func (s *Buttons) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Pressed implements device.ButtonReader.
func (s *Buttons) Pressed(b device.Button) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	if n, ok := s.after[b]; ok {
		if n <= 0 {
			s.pressed[b] = true
			delete(s.after, b)
		} else {
			s.after[b] = n - 1
		}
	}
	return s.pressed[b], nil
}

// --- LEDs ---

// LED records its state and how often it was switched on.
type LED struct {
	mu  sync.Mutex
	on  bool
	ons int
}

// Set implements device.LED.
func (l *LED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if on && !l.on {
		l.ons++
	}
	l.on = on
	return nil
}

// On reports the current state.
func (l *LED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}

// Lit returns how many times the LED went from off to on.
func (l *LED) Lit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ons
}

// NetworkLED records brightness and pulse settings.
type NetworkLED struct {
	mu         sync.Mutex
	brightness float64
	pulseHz    float64
}

// SetBrightness implements device.DimmableLED.
func (n *NetworkLED) SetBrightness(percent float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.brightness = percent
	n.pulseHz = 0
	return nil
}

// Pulse implements device.DimmableLED.
func (n *NetworkLED) Pulse(hz float64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pulseHz = hz
	return nil
}

// Stop implements device.DimmableLED.
func (n *NetworkLED) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pulseHz = 0
	return nil
}

// Brightness returns the last brightness set.
func (n *NetworkLED) Brightness() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.brightness
}

// Pulsing reports whether a pulse is running.
func (n *NetworkLED) Pulsing() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.pulseHz > 0
}

// --- Sleeper and Restarter ---

// Sleeper records requested durations and returns at once. OnSleep, when
// set, runs after each request; tests use it to end the run loop.
type Sleeper struct {
	OnSleep func(n int, d time.Duration)

	mu    sync.Mutex
	slept []time.Duration
}

// Sleep implements device.Sleeper.
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	n := len(s.slept)
	hook := s.OnSleep
	s.mu.Unlock()

	if hook != nil {
		hook(n, d)
	}
	return ctx.Err()
}

// Slept returns every duration requested so far.
func (s *Sleeper) Slept() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.slept))
	copy(out, s.slept)
	return out
}

// Restarter counts restarts. Err, when set, is returned from Restart.
type Restarter struct {
	Err error

	mu    sync.Mutex
	count int
}

// Restart implements device.Restarter.
func (r *Restarter) Restart() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.Err
}

// Count returns how many restarts were requested.
func (r *Restarter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
