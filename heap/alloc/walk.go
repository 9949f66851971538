package alloc

import (
	"github.com/joshuapare/gckit/heap/block"
	"github.com/joshuapare/gckit/heap/segment"
	"github.com/joshuapare/gckit/internal/format"
)

// LocateHeader walks the headers of seg in ascending order and returns the
// one whose payload [hdr+HeaderSize, next) contains addr. Addresses inside
// header bytes resolve to nothing.
func (a *Allocator) LocateHeader(seg *segment.Segment, addr format.Addr) (block.Header, bool) {
	end := seg.End()
	for h := seg.First(a.sp); h.Addr < end; {
		next := h.Next()
		if next.Addr <= h.Addr {
			// Corrupt size; stop rather than loop.
			return block.Header{}, false
		}
		if h.Payload() <= addr && addr < next.Addr {
			return h, true
		}
		if addr < next.Addr {
			return block.Header{}, false
		}
		h = next
	}
	return block.Header{}, false
}

// WalkSegment visits every header of seg in ascending address order until
// fn returns false. The next header is computed after fn returns, so fn may
// free the block it is given.
func (a *Allocator) WalkSegment(seg *segment.Segment, fn func(h block.Header) bool) {
	end := seg.End()
	for h := seg.First(a.sp); h.Addr < end; {
		if !fn(h) {
			return
		}
		next := h.Next()
		if next.Addr <= h.Addr {
			return
		}
		h = next
	}
}

// Walk visits every header of every segment, segments in registration
// order, until fn returns false.
func (a *Allocator) Walk(fn func(seg *segment.Segment, h block.Header) bool) {
	for i := range a.segs.Len() {
		seg := a.segs.At(i)
		stop := false
		a.WalkSegment(seg, func(h block.Header) bool {
			if !fn(seg, h) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// FreeBlock is a snapshot of one free-ring node.
type FreeBlock struct {
	Addr format.Addr
	Size uint64
	Next format.Addr
}

// FreeBlocks returns the ring starting at the cursor, in ring order.
func (a *Allocator) FreeBlocks() []FreeBlock {
	if a.freeList == format.Nil {
		return nil
	}
	var out []FreeBlock
	h := block.At(a.sp, a.freeList)
	for {
		out = append(out, FreeBlock{Addr: h.Addr, Size: h.Size(), Next: h.NextFree()})
		h = h.NextFreeHeader()
		if h.Addr == a.freeList || len(out) > maxRingWalk {
			return out
		}
	}
}

// maxRingWalk bounds ring snapshots so a corrupted ring cannot hang tooling.
const maxRingWalk = 1 << 24
