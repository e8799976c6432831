//go:build !linux

package device

import "fmt"

func reboot() error {
	return fmt.Errorf("device: reboot is only supported on linux: %w", ErrRestart)
}
