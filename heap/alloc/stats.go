package alloc

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/gckit/internal/format"
)

// Stats holds allocator counters.
type Stats struct {
	AllocCalls        int    // Total Alloc() calls
	AllocFastPath     int    // Allocations satisfied by the first search
	AllocAfterCollect int    // Allocations satisfied after a collection
	AllocSlowPath     int    // Allocations that required growing the heap
	AllocFailed       int    // Allocations that returned Nil
	ReallocCalls      int    // Total Realloc() calls
	FreeCalls         int    // Total Free() calls
	FreeIgnored       int    // Free() calls on invalid pointers
	ExactFits         int    // Blocks handed out whole
	SplitCount        int    // Blocks split
	CoalesceForward   int    // Merges with the following free block
	CoalesceBackward  int    // Merges into the preceding free block
	CollectTriggers   int    // Collections run by Alloc
	GrowCalls         int    // Segments added by grow
	GrowBytes         uint64 // Bytes added by grow
	BytesAllocated    uint64 // Payload bytes handed out
	BytesFreed        uint64 // Payload bytes returned (Free and sweep)
}

// Stats returns a copy of the counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// FreeBytes returns the payload bytes available in the free ring and the
// number of free blocks.
func (a *Allocator) FreeBytes() (bytes uint64, blocks int) {
	for _, fb := range a.FreeBlocks() {
		bytes += fb.Size
		blocks++
	}
	return bytes, blocks
}

// PrintStats writes allocator statistics to w.
func (a *Allocator) PrintStats(w io.Writer) {
	s := a.stats
	freeBytes, freeBlocks := a.FreeBytes()

	fmt.Fprintf(w, "\n=== ALLOCATOR STATISTICS ===\n")
	fmt.Fprintf(w, "Segments:           %d (%d bytes)\n", a.segs.Len(), a.segs.Stats().Bytes)
	fmt.Fprintf(w, "Alloc calls:        %d (fast: %d, after gc: %d, grow: %d, failed: %d)\n",
		s.AllocCalls, s.AllocFastPath, s.AllocAfterCollect, s.AllocSlowPath, s.AllocFailed)
	fmt.Fprintf(w, "Realloc calls:      %d\n", s.ReallocCalls)
	fmt.Fprintf(w, "Free calls:         %d (ignored: %d)\n", s.FreeCalls, s.FreeIgnored)
	fmt.Fprintf(w, "Exact fits:         %d\n", s.ExactFits)
	fmt.Fprintf(w, "Block splits:       %d\n", s.SplitCount)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	fmt.Fprintf(w, "Collections:        %d\n", s.CollectTriggers)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "\nFree ring:\n")
	fmt.Fprintf(w, "  Free blocks:      %d\n", freeBlocks)
	fmt.Fprintf(w, "  Free bytes:       %d\n", freeBytes)
	fmt.Fprintf(w, "============================\n\n")
}

// dumpAllocatorState dumps the free ring for debugging.
func (a *Allocator) dumpAllocatorState(need uint64) {
	if !debugAlloc {
		return
	}

	fmt.Fprintf(os.Stderr, "\n=== ALLOCATOR STATE DUMP (need=%d) ===\n", need)
	fmt.Fprintf(os.Stderr, "cursor: 0x%x\n", uint64(a.freeList))
	for _, fb := range a.FreeBlocks() {
		fmt.Fprintf(os.Stderr, "  free 0x%x size=%d next=0x%x\n", uint64(fb.Addr), fb.Size, uint64(fb.Next))
	}
	fmt.Fprintf(os.Stderr, "segments: %d\n", a.segs.Len())
	for _, s := range a.segs.Segments() {
		fmt.Fprintf(os.Stderr, "  seg 0x%x..0x%x (%d bytes, header %d)\n",
			uint64(s.Base), uint64(s.End()), s.Size, format.HeaderSize)
	}
	fmt.Fprintf(os.Stderr, "===================================\n\n")
}
