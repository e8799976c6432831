package storage

import "golang.org/x/sys/unix"

func mount(device, target, fstype string) error {
	return unix.Mount(device, target, fstype, unix.MS_NOATIME, "")
}

func unmount(target string) error {
	unix.Sync()
	return unix.Unmount(target, 0)
}
