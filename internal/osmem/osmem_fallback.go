//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package osmem

// Acquire allocates from the Go heap when anonymous mappings are not
// available. The slice is never moved by the Go runtime, so heap addresses
// mapped onto it stay stable.
func Acquire(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, ErrBadSize
	}
	return make([]byte, size), func() error { return nil }, nil
}
