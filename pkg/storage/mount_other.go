//go:build !linux

package storage

import "errors"

var errMountUnsupported = errors.New("mounting block devices is only supported on linux")

func mount(device, target, fstype string) error { return errMountUnsupported }

func unmount(target string) error { return errMountUnsupported }
