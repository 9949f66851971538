package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/gckit/heap/block"
	"github.com/joshuapare/gckit/heap/segment"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime debug flag for allocation logging - controlled by GCKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("GCKIT_LOG_ALLOC") != ""

// Allocator is the circular free-list allocator.
type Allocator struct {
	sp   *vmem.Space
	segs *segment.Manager

	// freeList is the rotating cursor into the free ring (Nil = empty ring).
	freeList format.Addr

	collector Collector

	// pins are addresses a running operation still needs; the collector
	// treats them like register contents.
	pins []format.Addr

	stats Stats

	// Test hook: called after a segment is added by grow (nil in production)
	onGrow func(block.Header)
}

// New creates an allocator over the segment registry. The heap starts
// without segments; the first Alloc creates one.
func New(segs *segment.Manager) *Allocator {
	return &Allocator{
		sp:   segs.Space(),
		segs: segs,
		pins: make([]format.Addr, 0, 2),
	}
}

// SetCollector installs the collection hook run on the first failed search.
func (a *Allocator) SetCollector(c Collector) {
	a.collector = c
}

// Alloc returns the payload address of a zero-filled block of at least size
// bytes. A zero size, an oversized request, or OS exhaustion yields
// format.Nil and an error; segment-registry exhaustion is fatal (see
// segment.Manager).
func (a *Allocator) Alloc(size uint64) (format.Addr, error) {
	a.stats.AllocCalls++

	if size == 0 {
		return format.Nil, ErrZeroSize
	}
	if size > format.MaxAllocSize {
		return format.Nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	need := format.AlignWord(size)

	// First allocation on a fresh heap.
	if a.segs.Len() == 0 {
		h, err := a.segs.Add(0)
		if err != nil {
			a.stats.AllocFailed++
			return format.Nil, err
		}
		a.freeList = h.Addr
	}

	if p, ok := a.search(need); ok {
		a.stats.AllocFastPath++
		return p, nil
	}

	// First failure: collect once and retry.
	if a.collector != nil {
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] no fit for %d bytes, collecting\n", need)
		}
		a.stats.CollectTriggers++
		a.collector.Collect()
		if p, ok := a.search(need); ok {
			a.stats.AllocAfterCollect++
			return p, nil
		}
	}

	// Second failure: grow by one segment sized to the request.
	if err := a.grow(need); err != nil {
		a.stats.AllocFailed++
		return format.Nil, err
	}
	p, ok := a.search(need)
	if !ok {
		if debugAlloc {
			debugLogf("Alloc(%d): FAILED after grow", need)
			a.dumpAllocatorState(need)
		}
		a.stats.AllocFailed++
		return format.Nil, ErrNoSpace
	}
	a.stats.AllocSlowPath++
	return p, nil
}

// search walks the ring once, starting just after the cursor.
func (a *Allocator) search(need uint64) (format.Addr, bool) {
	if a.freeList == format.Nil {
		return format.Nil, false
	}

	prev := block.At(a.sp, a.freeList)
	for p := prev.NextFreeHeader(); ; prev, p = p, p.NextFreeHeader() {
		size := p.Size()
		switch {
		case size == need:
			// Exact fit: unlink.
			if p.Addr == prev.Addr {
				a.freeList = format.Nil
			} else {
				prev.SetNextFree(p.NextFree())
				a.freeList = prev.Addr
			}
			p.SetFlags(format.FlagAlloc)
			p.SetNextFree(format.Nil)
			p.ZeroPayload()

			a.stats.ExactFits++
			a.stats.BytesAllocated += need
			return p.Payload(), true

		case size > need+format.HeaderSize:
			// Split: the allocation takes the high end of the free block.
			p.SetSize(size - (need + format.HeaderSize))
			n := p.Next()
			a.sp.Zero(n.Addr, format.HeaderSize+int(need))
			n.Init(format.FlagAlloc, need, format.Nil)
			a.freeList = prev.Addr

			a.stats.SplitCount++
			a.stats.BytesAllocated += need
			return n.Payload(), true
		}

		if p.Addr == a.freeList {
			return format.Nil, false
		}
	}
}

// grow adds a segment able to hold need bytes and merges its free block
// into the ring.
func (a *Allocator) grow(need uint64) error {
	h, err := a.segs.Add(need)
	if err != nil {
		return err
	}
	a.stats.GrowCalls++
	a.stats.GrowBytes += h.Size() + format.HeaderSize

	if logAlloc {
		fmt.Fprintf(os.Stderr, "[GROW] #%d: need=%d → segment of %d usable bytes | %d segments\n",
			a.stats.GrowCalls, need, h.Size(), a.segs.Len())
	}

	a.joinFreeList(h)

	if a.onGrow != nil {
		a.onGrow(h)
	}
	return nil
}

// Realloc allocates a fresh block of size bytes and copies
// min(oldSize, size) bytes from p into it when p is a live allocation.
//
// The old block is not released: it stays allocated until a collection
// finds it unreachable, since other references to it may still exist.
func (a *Allocator) Realloc(p format.Addr, size uint64) (format.Addr, error) {
	a.stats.ReallocCalls++

	// p is only held by the caller's Go frame; keep it visible to a
	// collection triggered by the allocation below.
	if p != format.Nil {
		a.pins = append(a.pins, p)
		defer func() { a.pins = a.pins[:len(a.pins)-1] }()
	}

	np, err := a.Alloc(size)
	if err != nil {
		return format.Nil, err
	}
	if p == format.Nil {
		return np, nil
	}

	old, ok := a.HeaderOf(p)
	if !ok {
		return np, nil
	}
	n := min(old.Size(), size)
	a.sp.Copy(np, p, int(n))
	return np, nil
}

// Free returns the block whose payload starts at p to the free ring.
// Pointers outside every segment, interior pointers, header addresses and
// already-free blocks are silently ignored.
func (a *Allocator) Free(p format.Addr) {
	a.stats.FreeCalls++

	h, ok := a.HeaderOf(p)
	if !ok {
		a.stats.FreeIgnored++
		if debugAlloc {
			debugLogf("Free(0x%x): ignored", uint64(p))
		}
		return
	}
	a.Reclaim(h)
}

// Reclaim merges an allocated header into the free ring and clears its
// flags. The caller guarantees h is a live allocated block header.
func (a *Allocator) Reclaim(h block.Header) {
	a.stats.BytesFreed += h.Size()
	a.joinFreeList(h)
	h.SetFlags(0)
}

// HeaderOf resolves a payload address to its allocated header.
func (a *Allocator) HeaderOf(p format.Addr) (block.Header, bool) {
	seg, ok := a.segs.Locate(p)
	if !ok {
		return block.Header{}, false
	}
	h, ok := a.LocateHeader(seg, p)
	if !ok || h.Payload() != p || !h.Allocated() {
		return block.Header{}, false
	}
	return h, true
}

// joinFreeList inserts target into the address-ordered ring, coalescing with
// the free blocks physically before and after it, and leaves the cursor on
// the insertion point.
func (a *Allocator) joinFreeList(target block.Header) {
	if a.freeList == format.Nil {
		target.SetNextFree(target.Addr)
		a.freeList = target.Addr
		return
	}

	// Find hit such that hit < target < hit.next, or the seam when target
	// lies beyond either end of the ring.
	hit := block.At(a.sp, a.freeList)
	for {
		next := hit.NextFree()
		if target.Addr > hit.Addr && target.Addr < next {
			break
		}
		if hit.Addr >= next && (target.Addr > hit.Addr || target.Addr < next) {
			break
		}
		hit = hit.NextFreeHeader()
	}

	next := hit.NextFreeHeader()
	if target.End() == next.Addr {
		// Absorb the successor.
		target.SetSize(target.Size() + next.Size() + format.HeaderSize)
		a.stats.CoalesceForward++
		if next.Addr == hit.Addr {
			// The successor was the only free block.
			target.SetNextFree(target.Addr)
			a.freeList = target.Addr
			return
		}
		target.SetNextFree(next.NextFree())
	} else {
		target.SetNextFree(next.Addr)
	}

	if hit.End() == target.Addr {
		// The predecessor absorbs target.
		hit.SetSize(hit.Size() + target.Size() + format.HeaderSize)
		hit.SetNextFree(target.NextFree())
		a.stats.CoalesceBackward++
	} else {
		hit.SetNextFree(target.Addr)
	}

	a.freeList = hit.Addr
}

// Pins returns the addresses currently pinned by in-flight operations.
func (a *Allocator) Pins() []format.Addr {
	return a.pins
}

// FreeList returns the ring cursor (Nil when empty).
func (a *Allocator) FreeList() format.Addr {
	return a.freeList
}

// Segments returns the segment registry.
func (a *Allocator) Segments() *segment.Manager {
	return a.segs
}

// Space returns the address space.
func (a *Allocator) Space() *vmem.Space {
	return a.sp
}

func debugLogf(format string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}
