//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package osmem

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Acquire maps size bytes of anonymous, zero-filled memory and returns the
// mapping together with a cleanup func that unmaps it.
func Acquire(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, ErrBadSize
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("osmem: mmap %d bytes: %w", size, err)
	}
	cleanup := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, cleanup, nil
}
