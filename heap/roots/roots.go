// Package roots holds the registry of extra root ranges: address ranges
// outside the machine stack (static data, host-owned tables) that the
// collector scans conservatively on every cycle.
//
// The registry is append-only with a fixed capacity. Registering a range
// past the capacity is fatal.
package roots

import (
	"errors"
	"fmt"

	"github.com/joshuapare/gckit/internal/format"
)

// ErrRootOverflow indicates the root registry is full. It is fatal.
var ErrRootOverflow = errors.New("roots: Root Overflow Error: root registry full")

// Range is a registered [Start, End) address range with Start <= End.
type Range struct {
	Start format.Addr
	End   format.Addr
}

// Len returns the range length in bytes.
func (r Range) Len() uint64 {
	return uint64(r.End - r.Start)
}

// Registry is the append-only root-range table.
type Registry struct {
	ranges []Range
	limit  int
	fatal  func(error)
}

// NewRegistry creates an empty registry. limit <= 0 selects
// format.RootLimit; a nil fatal handler panics.
func NewRegistry(limit int, fatal func(error)) *Registry {
	if limit <= 0 {
		limit = format.RootLimit
	}
	if fatal == nil {
		fatal = func(err error) { panic(err) }
	}
	return &Registry{
		ranges: make([]Range, 0, 8),
		limit:  limit,
		fatal:  fatal,
	}
}

// Add registers [start, end). The bounds may be given in either order.
// Empty ranges are recorded like any other; they never yield a word.
func (r *Registry) Add(start, end format.Addr) error {
	if len(r.ranges) >= r.limit {
		err := fmt.Errorf("%w (limit %d)", ErrRootOverflow, r.limit)
		r.fatal(err)
		return err
	}
	if start > end {
		start, end = end, start
	}
	r.ranges = append(r.ranges, Range{Start: start, End: end})
	return nil
}

// Ranges returns the registered ranges in registration order. The slice
// must not be modified.
func (r *Registry) Ranges() []Range {
	return r.ranges
}

// Len returns the number of registered ranges.
func (r *Registry) Len() int {
	return len(r.ranges)
}

// Limit returns the registry capacity.
func (r *Registry) Limit() int {
	return r.limit
}
