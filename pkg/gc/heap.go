package gc

import (
	"fmt"

	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/heap/collect"
	"github.com/joshuapare/gckit/heap/roots"
	"github.com/joshuapare/gckit/heap/scan"
	"github.com/joshuapare/gckit/heap/segment"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// Addr is a heap address.
type Addr = format.Addr

// Nil is the null heap address.
const Nil = format.Nil

// WordSize is the size of a candidate word in bytes.
const WordSize = format.WordSize

// Heap is a garbage-collected heap with its own address space, registries,
// execution context and collector.
type Heap struct {
	opts Options

	sp      *vmem.Space
	segs    *segment.Manager
	alloc   *alloc.Allocator
	roots   *roots.Registry
	machine *scan.Machine
	coll    *collect.Collector

	closed bool
}

// New creates a heap. No segment is mapped until the first allocation;
// the built-in machine stack is mapped immediately unless opts.Context is
// set.
func New(opts Options) (*Heap, error) {
	opts = opts.withDefaults()

	h := &Heap{
		opts: opts,
		sp:   vmem.New(opts.MaxHeapBytes),
	}

	ctx := opts.Context
	if ctx == nil {
		growth := scan.GrowDown
		if opts.StackGrowsUp {
			growth = scan.GrowUp
		}
		m, err := scan.NewMachine(h.sp, scan.MachineOptions{
			StackSize: opts.StackSize,
			Growth:    growth,
		})
		if err != nil {
			_ = h.sp.Close()
			return nil, fmt.Errorf("gc: %w", err)
		}
		h.machine = m
		ctx = m
	}

	h.segs = segment.NewManager(h.sp, opts.SegmentLimit, opts.Fatal)
	h.alloc = alloc.New(h.segs)
	h.roots = roots.NewRegistry(opts.RootLimit, opts.Fatal)
	h.coll = collect.New(h.alloc, h.roots, ctx)
	h.alloc.SetCollector(h.coll)
	return h, nil
}

// Init records the current stack pointer of the execution context as the
// stack baseline. It must be called once before Alloc or Realloc.
func (h *Heap) Init() error {
	if h.closed {
		return ErrClosed
	}
	if h.coll.Initialized() {
		return ErrAlreadyInitialized
	}
	h.coll.Init()
	return nil
}

func (h *Heap) ready() error {
	if h.closed {
		return ErrClosed
	}
	if !h.coll.Initialized() {
		return ErrNotInitialized
	}
	return nil
}

// Alloc returns the address of a zero-filled payload of at least n bytes.
// It returns Nil and an error when n is 0 or the heap cannot grow.
func (h *Heap) Alloc(n uint64) (Addr, error) {
	if err := h.ready(); err != nil {
		return Nil, err
	}
	return h.alloc.Alloc(n)
}

// Realloc returns a new block of n bytes holding the first min(old, n)
// bytes of p. p is not released; it is reclaimed by a later collection once
// nothing references it. A Nil p behaves like Alloc.
func (h *Heap) Realloc(p Addr, n uint64) (Addr, error) {
	if err := h.ready(); err != nil {
		return Nil, err
	}
	return h.alloc.Realloc(p, n)
}

// Free releases the block at p immediately. Addresses that are not the
// payload of a live block are ignored.
func (h *Heap) Free(p Addr) {
	if h.closed {
		return
	}
	h.alloc.Free(p)
}

// AddRoots registers [start, end) as a root range. The bounds may be given
// in either order. Exceeding Options.RootLimit is fatal.
func (h *Heap) AddRoots(start, end Addr) error {
	if h.closed {
		return ErrClosed
	}
	return h.roots.Add(start, end)
}

// Collect runs one full collection cycle. It does nothing before Init.
func (h *Heap) Collect() {
	if h.closed {
		return
	}
	h.coll.Collect()
}

// Static maps a zero-filled area of n bytes outside the collected heap,
// the analogue of a program's global variables. It is not a root until
// registered with AddRoots.
func (h *Heap) Static(n int) (Addr, error) {
	if h.closed {
		return Nil, ErrClosed
	}
	if n <= 0 {
		return Nil, fmt.Errorf("gc: static area of %d bytes: %w", n, ErrZeroSize)
	}
	r, err := h.sp.Map(int(format.AlignWord(uint64(n))), vmem.KindStatic)
	if err != nil {
		return Nil, fmt.Errorf("gc: static area: %w", err)
	}
	return r.Base, nil
}

// Allocated reports whether p is the payload address of a live block.
func (h *Heap) Allocated(p Addr) bool {
	if h.closed {
		return false
	}
	_, ok := h.alloc.HeaderOf(p)
	return ok
}

// Size returns the payload size of the live block at p.
func (h *Heap) Size(p Addr) (uint64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	hdr, ok := h.alloc.HeaderOf(p)
	if !ok {
		return 0, fmt.Errorf("%w: 0x%x", ErrNotAllocated, uint64(p))
	}
	return hdr.Size(), nil
}

// Bytes returns the payload of the live block at p. The slice aliases heap
// memory and is valid until the block is reclaimed or the heap is closed.
func (h *Heap) Bytes(p Addr) ([]byte, error) {
	n, err := h.Size(p)
	if err != nil {
		return nil, err
	}
	return h.sp.Slice(p, int(n))
}

// LoadWord reads the word at a. a may be any mapped, word-aligned heap,
// stack or static address.
func (h *Heap) LoadWord(a Addr) (uint64, error) {
	if h.closed {
		return 0, ErrClosed
	}
	if !format.IsWordAligned(a) {
		return 0, fmt.Errorf("gc: load at 0x%x: %w", uint64(a), format.ErrMisaligned)
	}
	v, ok := h.sp.Word(a)
	if !ok {
		return 0, fmt.Errorf("gc: load at 0x%x: %w", uint64(a), vmem.ErrUnmapped)
	}
	return v, nil
}

// StoreWord writes v at a.
func (h *Heap) StoreWord(a Addr, v uint64) error {
	if h.closed {
		return ErrClosed
	}
	return h.sp.PutWord(a, v)
}

// Machine returns the built-in execution context, or nil when
// Options.Context was supplied.
func (h *Heap) Machine() *scan.Machine {
	return h.machine
}

// Segments returns a snapshot of the segment registry.
func (h *Heap) Segments() []segment.Segment {
	return h.segs.Segments()
}

// Roots returns the registered root ranges.
func (h *Heap) Roots() []roots.Range {
	return h.roots.Ranges()
}

// FreeBlocks returns a snapshot of the free list starting at its cursor.
func (h *Heap) FreeBlocks() []alloc.FreeBlock {
	if h.closed {
		return nil
	}
	return h.alloc.FreeBlocks()
}

// Close releases all OS memory. The heap is unusable afterwards.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.sp.Close(); err != nil {
		return fmt.Errorf("gc: close: %w", err)
	}
	return nil
}
