package alloc

import "errors"

var (
	// ErrZeroSize indicates a zero-byte request. The result is the null address.
	ErrZeroSize = errors.New("alloc: zero-size request")

	// ErrTooLarge indicates a request above format.MaxAllocSize.
	ErrTooLarge = errors.New("alloc: request too large")

	// ErrNoSpace indicates that no free block fits even after collecting and growing.
	ErrNoSpace = errors.New("alloc: no free block large enough")
)
