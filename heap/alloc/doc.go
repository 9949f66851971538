// Package alloc provides the free-list allocator of the managed heap.
//
// # Overview
//
// Free blocks are threaded through their own headers into one circular,
// address-ordered list with a single seam (the link from the highest free
// block back to the lowest). The allocator keeps only a rotating cursor into
// that ring; there is no separate free-list structure.
//
// # Allocation
//
// Alloc aligns the request to the word size and walks the ring starting just
// after the cursor:
//
//   - Exact fit: the block is unlinked and handed out whole.
//   - Splittable fit (size > need + HeaderSize): the free block shrinks by
//     need + HeaderSize and the new allocation is carved from its high end,
//     so the free remainder stays where it was in the ring.
//
// If the walk comes back to the cursor without a fit, the first failure runs
// one collection cycle through the Collector hook and retries; the second
// grows the heap by one segment sized to the request.
//
// # Release and coalescing
//
// Free validates the pointer (it must be the payload address of an allocated
// block inside a known segment) and silently ignores anything else. Valid
// blocks are merged into the ring by joinFreeList, which coalesces with both
// physical neighbours in one pass.
//
// # Usage Example
//
//	sp := vmem.New(0)
//	segs := segment.NewManager(sp, 0, nil)
//	a := alloc.New(segs)
//	a.SetCollector(collector)
//
//	p, err := a.Alloc(100)
//	if err != nil {
//	    return err
//	}
//	a.Free(p)
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally.
package alloc
