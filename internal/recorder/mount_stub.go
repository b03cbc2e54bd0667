//go:build !linux

package recorder

import "fmt"

func mountDevice(device, mountpoint, fstype string) error {
	return fmt.Errorf("mount not supported on this platform")
}

func unmountDevice(mountpoint string) error {
	return fmt.Errorf("unmount not supported on this platform")
}
