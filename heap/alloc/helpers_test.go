package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/heap/block"
	"github.com/joshuapare/gckit/heap/segment"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestAllocator creates an allocator over a fresh, unlimited address space.
func newTestAllocator(t testing.TB) *Allocator {
	t.Helper()
	return newLimitedAllocator(t, 0, 0)
}

// newLimitedAllocator creates an allocator with a segment-registry capacity
// and a mapping ceiling. Registry exhaustion panics.
func newLimitedAllocator(t testing.TB, segLimit int, mapLimit int64) *Allocator {
	t.Helper()
	sp := vmem.New(mapLimit)
	t.Cleanup(func() { _ = sp.Close() })
	return New(segment.NewManager(sp, segLimit, nil))
}

// mustAlloc allocates and fails the test on error.
func mustAlloc(t testing.TB, a *Allocator, size uint64) format.Addr {
	t.Helper()
	p, err := a.Alloc(size)
	require.NoError(t, err)
	require.NotEqual(t, format.Nil, p)
	return p
}

// header returns the header view for payload p.
func header(a *Allocator, p format.Addr) block.Header {
	return block.FromPayload(a.sp, p)
}

// requireHeapInvariants checks the structural invariants of the heap:
//   - the header walk tiles every segment exactly
//   - sizes are word aligned and no block carries FlagMark
//   - no two physically adjacent blocks are both free
//   - the free ring holds exactly the free blocks, with one seam
func requireHeapInvariants(t testing.TB, a *Allocator) {
	t.Helper()

	free := make(map[format.Addr]bool)
	for i := range a.segs.Len() {
		seg := a.segs.At(i)
		last := seg.Base
		prevFree := false
		a.WalkSegment(seg, func(h block.Header) bool {
			require.Zero(t, h.Size()%format.WordSize, "unaligned size at %s", h)
			require.False(t, h.Has(format.FlagMark), "stray mark at %s", h)
			isFree := !h.Allocated()
			require.False(t, isFree && prevFree, "uncoalesced neighbours at %s", h)
			if isFree {
				free[h.Addr] = true
			}
			prevFree = isFree
			last = h.End()
			return true
		})
		require.Equal(t, seg.End(), last, "headers must tile segment %d", i)
	}

	ring := a.FreeBlocks()
	require.Len(t, ring, len(free), "free ring must hold every free block")
	seams := 0
	for _, fb := range ring {
		require.True(t, free[fb.Addr], "ring node 0x%x is not a free block", uint64(fb.Addr))
		if fb.Next <= fb.Addr {
			seams++
		}
	}
	if len(ring) > 0 {
		require.Equal(t, 1, seams, "address-ordered ring has exactly one seam")
	}
}

// snapshotSegments copies the raw bytes of every segment.
func snapshotSegments(t testing.TB, a *Allocator) [][]byte {
	t.Helper()
	var out [][]byte
	for _, seg := range a.segs.Segments() {
		b, err := a.sp.Slice(seg.Base, int(seg.Size))
		require.NoError(t, err)
		out = append(out, append([]byte(nil), b...))
	}
	return out
}
