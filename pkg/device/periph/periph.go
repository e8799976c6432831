// Package periph drives real hardware through periph.io: buttons and LEDs
// on GPIO, the network LED on PWM, and a Waveshare e-paper HAT on SPI.
package periph

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v2"
	"periph.io/x/host/v3"

	"gitlab.com/tinyland/lab/inkframe/pkg/config"
	"gitlab.com/tinyland/lab/inkframe/pkg/device"
)

// Open initialises the host drivers and claims every pin in cfg.
func Open(cfg config.HardwareConfig, logger *slog.Logger) (*device.Board, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph: host init: %w", err)
	}

	b := &device.Board{}

	buttons, err := openButtons(cfg.Buttons, cfg.ActiveLow)
	if err != nil {
		return nil, err
	}
	b.Buttons = buttons

	for i, name := range cfg.ButtonLEDs {
		led, err := openLED(name)
		if err != nil {
			return nil, err
		}
		b.ButtonLEDs[i] = led
	}
	if b.Busy, err = openLED(cfg.BusyLED); err != nil {
		return nil, err
	}
	if b.Warn, err = openLED(cfg.WarnLED); err != nil {
		return nil, err
	}
	netLED, err := openPWMLED(cfg.NetworkLED)
	if err != nil {
		return nil, err
	}
	b.Network = netLED

	panel, err := openPanel(cfg.SPIPort)
	if err != nil {
		return nil, err
	}
	b.Panel = panel

	b.Sleeper = &device.RTCSleeper{Device: cfg.RTCDevice, Logger: logger}
	switch cfg.Restart {
	case "exit":
		b.Restarter = device.ExitRestarter{}
	default:
		b.Restarter = device.RebootRestarter{}
	}

	b.Close = func() error {
		return errors.Join(netLED.Stop(), panel.Close())
	}
	return b, nil
}

// --- Buttons ---

type buttons struct {
	pins      [5]gpio.PinIn
	activeLow bool
}

func openButtons(names []string, activeLow bool) (*buttons, error) {
	if len(names) != len(device.Buttons) {
		return nil, fmt.Errorf("periph: need %d button pins, got %d", len(device.Buttons), len(names))
	}
	pull := gpio.PullDown
	if activeLow {
		pull = gpio.PullUp
	}
	bs := &buttons{activeLow: activeLow}
	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("periph: button %s: unknown pin %q", device.Buttons[i], name)
		}
		if err := p.In(pull, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("periph: button %s: %w", device.Buttons[i], err)
		}
		bs.pins[i] = p
	}
	return bs, nil
}

func (bs *buttons) Pressed(b device.Button) (bool, error) {
	if b < device.ButtonA || b > device.ButtonE {
		return false, fmt.Errorf("periph: no such button %v", b)
	}
	level := bs.pins[b].Read()
	if bs.activeLow {
		return level == gpio.Low, nil
	}
	return level == gpio.High, nil
}

// --- LEDs ---

type led struct {
	pin gpio.PinOut
}

// noLED stands in for an LED whose pin is not configured.
type noLED struct{}

func (noLED) Set(bool) error { return nil }

func openLED(name string) (device.LED, error) {
	if name == "" {
		return noLED{}, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: unknown LED pin %q", name)
	}
	if err := p.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("periph: LED %s: %w", name, err)
	}
	return &led{pin: p}, nil
}

func (l *led) Set(on bool) error {
	return l.pin.Out(gpio.Level(on))
}

const pwmFrequency = 1 * physic.KiloHertz

// pwmLED dims an LED with hardware PWM. Pulse runs a goroutine that only
// touches this pin.
type pwmLED struct {
	pin gpio.PinOut

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func openPWMLED(name string) (*pwmLED, error) {
	if name == "" {
		return &pwmLED{}, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: unknown network LED pin %q", name)
	}
	return &pwmLED{pin: p}, nil
}

func (l *pwmLED) write(percent float64) error {
	if l.pin == nil {
		return nil
	}
	duty := gpio.Duty(device.Gamma(percent) * float64(gpio.DutyMax))
	return l.pin.PWM(duty, pwmFrequency)
}

func (l *pwmLED) SetBrightness(percent float64) error {
	l.stopPulse()
	return l.write(percent)
}

func (l *pwmLED) Pulse(hz float64) error {
	l.stopPulse()
	if l.pin == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.mu.Lock()
	l.cancel, l.done = cancel, done
	l.mu.Unlock()

	go func() {
		defer close(done)
		start := time.Now()
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = l.write(device.PulseLevel(time.Since(start), hz))
			}
		}
	}()
	return nil
}

func (l *pwmLED) Stop() error {
	l.stopPulse()
	return nil
}

func (l *pwmLED) stopPulse() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// --- Panel ---

type panel struct {
	port spi.PortCloser
	dev  *waveshare2in13v2.Dev
}

func openPanel(port string) (*panel, error) {
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("periph: open spi %q: %w", port, err)
	}
	opts := waveshare2in13v2.EPD2in13v2
	dev, err := waveshare2in13v2.NewHat(p, &opts)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("periph: e-paper hat: %w", err)
	}
	if err := dev.Init(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("periph: e-paper init: %w", err)
	}
	return &panel{port: p, dev: dev}, nil
}

func (p *panel) Bounds() image.Rectangle { return p.dev.Bounds() }

// Show wakes the panel, draws a full refresh, then puts it back to sleep.
func (p *panel) Show(ctx context.Context, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.dev.Init(); err != nil {
		return fmt.Errorf("periph: e-paper wake: %w", err)
	}
	frame := image1bit.NewVerticalLSB(p.dev.Bounds())
	draw.Draw(frame, frame.Bounds(), img, img.Bounds().Min, draw.Src)
	if err := p.dev.Draw(frame.Bounds(), frame, image.Point{}); err != nil {
		return fmt.Errorf("periph: e-paper draw: %w", err)
	}
	return p.dev.Sleep()
}

func (p *panel) Close() error {
	return errors.Join(p.dev.Halt(), p.port.Close())
}
