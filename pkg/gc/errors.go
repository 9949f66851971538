package gc

import (
	"errors"

	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/heap/roots"
	"github.com/joshuapare/gckit/heap/segment"
)

var (
	// ErrNotInitialized indicates use of a heap before Init.
	ErrNotInitialized = errors.New("gc: heap not initialized")

	// ErrAlreadyInitialized indicates a second Init.
	ErrAlreadyInitialized = errors.New("gc: heap already initialized")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("gc: heap closed")

	// ErrNotAllocated indicates an address that is not a live payload.
	ErrNotAllocated = errors.New("gc: not an allocated block")
)

// Errors surfaced from the heap packages, re-exported for errors.Is.
var (
	ErrOutOfMemory  = segment.ErrOutOfMemory
	ErrSegmentLimit = segment.ErrSegmentLimit
	ErrRootOverflow = roots.ErrRootOverflow
	ErrZeroSize     = alloc.ErrZeroSize
	ErrTooLarge     = alloc.ErrTooLarge
)
