package gc

import (
	"fmt"
	"io"

	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/heap/collect"
)

// Stats is a snapshot of heap counters.
type Stats struct {
	Alloc     alloc.Stats
	Collector collect.Stats

	Segments     int    // registered segments
	SegmentBytes uint64 // usable bytes across segments
	FreeBlocks   int    // blocks on the free list
	FreeBytes    uint64 // payload bytes on the free list
	Roots        int    // registered root ranges
	MappedBytes  int64  // bytes mapped from the OS, all regions
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	s := Stats{
		Alloc:        h.alloc.Stats(),
		Collector:    h.coll.Stats(),
		Segments:     h.segs.Len(),
		SegmentBytes: h.segs.Bytes(),
		Roots:        h.roots.Len(),
		MappedBytes:  h.sp.Mapped(),
	}
	if !h.closed {
		s.FreeBytes, s.FreeBlocks = h.alloc.FreeBytes()
	}
	return s
}

// PrintStats writes allocator and collector statistics to w.
func (h *Heap) PrintStats(w io.Writer) {
	if h.closed {
		fmt.Fprintln(w, "heap closed")
		return
	}
	h.alloc.PrintStats(w)
	h.coll.PrintStats(w)
	fmt.Fprintf(w, "Root ranges:        %d\n", h.roots.Len())
	fmt.Fprintf(w, "Mapped bytes:       %d\n", h.sp.Mapped())
}
