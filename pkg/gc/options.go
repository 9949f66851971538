package gc

import (
	"fmt"
	"os"

	"github.com/joshuapare/gckit/heap/scan"
	"github.com/joshuapare/gckit/internal/format"
)

// Options configures a Heap. Zero fields take the defaults of
// DefaultOptions.
type Options struct {
	// SegmentLimit is the capacity of the segment registry.
	// Adding a segment past it is fatal.
	SegmentLimit int

	// RootLimit is the capacity of the root registry.
	// Registering a range past it is fatal.
	RootLimit int

	// MaxHeapBytes caps the memory mapped from the OS: segments, the
	// machine stack and static areas together. Allocations that would
	// exceed it fail with ErrOutOfMemory. 0 means unlimited.
	MaxHeapBytes int64

	// StackSize is the size of the built-in machine stack in bytes.
	StackSize int

	// StackGrowsUp makes the built-in machine stack grow toward higher
	// addresses.
	StackGrowsUp bool

	// Context replaces the built-in machine as the source of registers and
	// the stack pointer. Machine returns nil when it is set.
	Context scan.Context

	// Fatal receives unrecoverable errors (registry exhaustion). It should
	// not return. Default: DefaultFatal.
	Fatal func(error)
}

// DefaultOptions returns the default heap configuration.
func DefaultOptions() Options {
	return Options{
		SegmentLimit: format.SegmentLimit,
		RootLimit:    format.RootLimit,
		StackSize:    format.DefaultStackSize,
		Fatal:        DefaultFatal,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SegmentLimit <= 0 {
		o.SegmentLimit = d.SegmentLimit
	}
	if o.RootLimit <= 0 {
		o.RootLimit = d.RootLimit
	}
	if o.StackSize <= 0 {
		o.StackSize = d.StackSize
	}
	if o.Fatal == nil {
		o.Fatal = d.Fatal
	}
	return o
}

var defaultExit = os.Exit

// exit is swapped by tests.
var exit = defaultExit

// DefaultFatal prints err to stderr and terminates the process with
// status 2.
func DefaultFatal(err error) {
	fmt.Fprintf(os.Stderr, "gckit: fatal: %v\n", err)
	exit(2)
}
