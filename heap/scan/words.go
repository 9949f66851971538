package scan

import (
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// Words calls fn for every word-aligned word of [start, end) that lies in
// mapped memory. An unaligned start rounds up; a trailing partial word is
// skipped. Unmapped stretches are jumped over rather than probed. A start
// within a word of the top of the address space yields an empty range.
func Words(sp *vmem.Space, start, end format.Addr, fn func(at format.Addr, w uint64)) {
	first := format.AlignAddr(start)
	if first < start {
		// Rounding up wrapped past the top of the address space.
		return
	}
	for a := first; a < end; {
		r, ok := sp.NextRegion(a)
		if !ok || r.Base >= end {
			return
		}
		if a < r.Base {
			a = format.AlignAddr(r.Base)
		}

		hi := min(end, r.End())
		for ; a+format.WordSize <= hi; a += format.WordSize {
			fn(a, format.ReadU64(r.Data, int(a-r.Base)))
		}
		if hi == end {
			return
		}
		a = format.AlignAddr(r.End())
	}
}

// Count returns the number of words Words would visit.
func Count(sp *vmem.Space, start, end format.Addr) int {
	n := 0
	Words(sp, start, end, func(format.Addr, uint64) { n++ })
	return n
}
