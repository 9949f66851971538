package format

import "errors"

var (
	// ErrTruncated indicates a buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrMisaligned indicates an address or size that is not word aligned.
	ErrMisaligned = errors.New("format: misaligned address")
)
