package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TimerSleeper waits on a timer and returns early when ctx ends.
type TimerSleeper struct{}

// Sleep blocks for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RTCSleeper arms the real-time clock wake alarm and suspends the board.
// When the alarm or the suspend is unavailable it falls back to a timer.
type RTCSleeper struct {
	// Device is the RTC name under /sys/class/rtc, usually "rtc0".
	Device string

	// SysfsRoot overrides "/sys" for tests.
	SysfsRoot string

	Logger   *slog.Logger
	Fallback Sleeper
}

func (s *RTCSleeper) root() string {
	if s.SysfsRoot != "" {
		return s.SysfsRoot
	}
	return "/sys"
}

// Sleep suspends until the RTC fires d from now.
func (s *RTCSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.suspend(d); err != nil {
		if s.Logger != nil {
			s.Logger.Debug("rtc suspend unavailable, using timer", "error", err)
		}
		fb := s.Fallback
		if fb == nil {
			fb = TimerSleeper{}
		}
		return fb.Sleep(ctx, d)
	}
	return nil
}

func (s *RTCSleeper) suspend(d time.Duration) error {
	if s.Device == "" {
		return errors.New("no rtc device configured")
	}
	secs := int64(d / time.Second)
	if secs < 1 {
		return errors.New("interval shorter than rtc resolution")
	}
	alarm := filepath.Join(s.root(), "class", "rtc", s.Device, "wakealarm")
	// Writing 0 clears a pending alarm; the kernel rejects a new one otherwise.
	if err := os.WriteFile(alarm, []byte("0"), 0o644); err != nil {
		return fmt.Errorf("clear wakealarm: %w", err)
	}
	if err := os.WriteFile(alarm, []byte("+"+strconv.FormatInt(secs, 10)), 0o644); err != nil {
		return fmt.Errorf("arm wakealarm: %w", err)
	}
	power := filepath.Join(s.root(), "power", "state")
	if err := os.WriteFile(power, []byte("mem"), 0o644); err != nil {
		_ = os.WriteFile(alarm, []byte("0"), 0o644)
		return fmt.Errorf("suspend: %w", err)
	}
	return nil
}
