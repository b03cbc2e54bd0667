package recorder

import (
	"io"
	"os"
	"path/filepath"
)

// Storage abstracts the removable volume the raw log is written to. The
// controller only needs mount/unmount, directory creation and file
// creation; paths passed to MkdirAll and Create are relative to the
// mountpoint.
type Storage interface {
	Mount() error
	Unmount() error
	MkdirAll(dir string) error
	Create(name string) (io.WriteCloser, error)
}

// blockStorage mounts a block device at a fixed mountpoint and creates log
// files beneath it. Mount and unmount are platform calls (mount_linux.go);
// file operations go through the os package.
type blockStorage struct {
	device     string
	fstype     string
	mountpoint string
}

// NewBlockStorage returns storage backed by a block device such as an SD
// card reader, e.g. ("/dev/mmcblk0p1", "vfat", "/mnt/gnsslog").
func NewBlockStorage(device, fstype, mountpoint string) Storage {
	return &blockStorage{device: device, fstype: fstype, mountpoint: mountpoint}
}

func (s *blockStorage) Mount() error {
	if err := os.MkdirAll(s.mountpoint, 0o755); err != nil {
		return err
	}
	return mountDevice(s.device, s.mountpoint, s.fstype)
}

func (s *blockStorage) Unmount() error {
	return unmountDevice(s.mountpoint)
}

func (s *blockStorage) MkdirAll(dir string) error {
	return os.MkdirAll(filepath.Join(s.mountpoint, dir), 0o755)
}

func (s *blockStorage) Create(name string) (io.WriteCloser, error) {
	return os.Create(filepath.Join(s.mountpoint, name))
}
