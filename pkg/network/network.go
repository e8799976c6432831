// Package network brings the board online before an app cycle and drives
// the network LED while it does.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"gitlab.com/tinyland/lab/inkframe/pkg/device"
)

// ErrOffline reports that no connection came up within the timeout.
var ErrOffline = errors.New("network: offline")

// connectedBrightness leaves the LED at a steady, moderate glow once online.
const connectedBrightness = 75

// Prober checks whether the network is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context) error

// Probe calls f.
func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// Joiner associates with a wireless network.
type Joiner interface {
	Join(ctx context.Context, ssid, password string) error
}

// NMCLI joins networks through NetworkManager's command line client.
type NMCLI struct{}

// Join runs nmcli device wifi connect.
func (NMCLI) Join(ctx context.Context, ssid, password string) error {
	args := []string{"device", "wifi", "connect", ssid}
	if password != "" {
		args = append(args, "password", password)
	}
	out, err := exec.CommandContext(ctx, "nmcli", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("network: nmcli: %w: %s", err, out)
	}
	return nil
}

// Connector waits for connectivity.
type Connector struct {
	SSID     string
	Password string

	Joiner Joiner
	Prober Prober

	LED  device.DimmableLED
	Warn device.LED

	// Timeout bounds the whole attempt. Default: 10s.
	Timeout time.Duration

	// Poll is the delay between probes. Default: 1s.
	Poll time.Duration

	Logger *slog.Logger
}

// Connect joins the configured network, if any, then probes until the
// network answers or Timeout passes. The network LED pulses meanwhile. On
// failure the warn LED is lit and ErrOffline is returned.
func (c *Connector) Connect(ctx context.Context) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	poll := c.Poll
	if poll <= 0 {
		poll = time.Second
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.LED != nil {
		_ = c.LED.Pulse(1)
	}

	if c.SSID != "" && c.Joiner != nil {
		if err := c.Joiner.Join(ctx, c.SSID, c.Password); err != nil {
			logger.Warn("wifi join failed", "ssid", c.SSID, "error", err)
		}
	}

	err := c.waitOnline(ctx, poll, logger)
	if c.LED != nil {
		_ = c.LED.Stop()
	}
	if err != nil {
		if c.LED != nil {
			_ = c.LED.SetBrightness(0)
		}
		if c.Warn != nil {
			_ = c.Warn.Set(true)
		}
		return err
	}
	if c.LED != nil {
		_ = c.LED.SetBrightness(connectedBrightness)
	}
	return nil
}

func (c *Connector) waitOnline(ctx context.Context, poll time.Duration, logger *slog.Logger) error {
	if c.Prober == nil {
		return nil
	}
	var last error
	for {
		err := c.Prober.Probe(ctx)
		if err == nil {
			return nil
		}
		last = err
		logger.Debug("waiting for connection", "error", err)

		t := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %w", ErrOffline, last)
		case <-t.C:
		}
	}
}
