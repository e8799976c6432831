// Package device describes the board an inkframe runs on: the e-ink panel,
// five buttons with their LEDs, the busy, warn and network LEDs, a sleeper
// and a restarter. Backends live in the periph and sim subpackages.
package device

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// ErrRestart is returned by a Restarter that hands the restart to the
// service manager instead of rebooting the board.
var ErrRestart = errors.New("device: restart requested")

// Button identifies one of the five front buttons.
type Button int

const (
	ButtonA Button = iota
	ButtonB
	ButtonC
	ButtonD
	ButtonE
)

// Buttons lists every button in poll order.
var Buttons = []Button{ButtonA, ButtonB, ButtonC, ButtonD, ButtonE}

// String returns the button letter.
func (b Button) String() string {
	if b < ButtonA || b > ButtonE {
		return fmt.Sprintf("Button(%d)", int(b))
	}
	return string(rune('A' + int(b)))
}

// ButtonReader samples button levels.
type ButtonReader interface {
	Pressed(b Button) (bool, error)
}

// LED is an on/off indicator.
type LED interface {
	Set(on bool) error
}

// DimmableLED is the network indicator. Brightness is a percentage.
type DimmableLED interface {
	SetBrightness(percent float64) error
	Pulse(hz float64) error
	Stop() error
}

// Panel is the physical display.
type Panel interface {
	Bounds() image.Rectangle
	Show(ctx context.Context, img image.Image) error
}

// Sleeper waits between update cycles.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Restarter restarts the board. On hardware Restart does not return on
// success.
type Restarter interface {
	Restart() error
}

// Board bundles the hardware an app cycle needs.
type Board struct {
	Panel      Panel
	Buttons    ButtonReader
	ButtonLEDs [5]LED
	Busy       LED
	Warn       LED
	Network    DimmableLED
	Sleeper    Sleeper
	Restarter  Restarter

	// Close releases the backend. It may be nil.
	Close func() error
}

// ButtonLED returns the LED next to b.
func (b *Board) ButtonLED(btn Button) LED {
	return b.ButtonLEDs[btn]
}

// ClearLEDs switches off every button LED and the warn LED.
func (b *Board) ClearLEDs() error {
	var errs []error
	for _, led := range b.ButtonLEDs {
		if led != nil {
			errs = append(errs, led.Set(false))
		}
	}
	if b.Warn != nil {
		errs = append(errs, b.Warn.Set(false))
	}
	return errors.Join(errs...)
}

// Held reports whether every button in btns is pressed right now.
func (b *Board) Held(btns ...Button) bool {
	if len(btns) == 0 {
		return false
	}
	for _, btn := range btns {
		down, err := b.Buttons.Pressed(btn)
		if err != nil || !down {
			return false
		}
	}
	return true
}
