//go:build linux

package recorder

import (
	"golang.org/x/sys/unix"
)

func mountDevice(device, mountpoint, fstype string) error {
	err := unix.Mount(device, mountpoint, fstype, unix.MS_NOATIME, "")
	if err == unix.EBUSY {
		// Already mounted (automounter or a previous run); usable as-is.
		return nil
	}
	return err
}

func unmountDevice(mountpoint string) error {
	return unix.Unmount(mountpoint, 0)
}
