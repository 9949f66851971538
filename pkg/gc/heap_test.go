package gc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestHeap creates an initialized heap whose fatal handler panics.
func newTestHeap(t *testing.T, opts Options) *Heap {
	t.Helper()
	if opts.Fatal == nil {
		opts.Fatal = func(err error) { panic(err) }
	}
	h, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	require.NoError(t, h.Init())
	return h
}

func mustAlloc(t *testing.T, h *Heap, n uint64) Addr {
	t.Helper()
	p, err := h.Alloc(n)
	require.NoError(t, err)
	require.NotEqual(t, Nil, p)
	return p
}

// fakeContext is an execution context with a fixed register snapshot and
// no stack.
type fakeContext struct {
	regs []uint64
}

func (f *fakeContext) CaptureRegisters(buf []uint64) int { return copy(buf, f.regs) }
func (f *fakeContext) StackPointer() Addr                { return Nil }

// ============================================================================
// Lifecycle
// ============================================================================

func TestHeap_Lifecycle(t *testing.T) {
	h, err := New(Options{})
	require.NoError(t, err)

	p, err := h.Alloc(8)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.Equal(t, Nil, p)
	_, err = h.Realloc(Nil, 8)
	require.ErrorIs(t, err, ErrNotInitialized)

	h.Collect() // no-op before Init
	require.Zero(t, h.Stats().Collector.Cycles)

	require.NoError(t, h.Init())
	require.ErrorIs(t, h.Init(), ErrAlreadyInitialized)

	p = mustAlloc(t, h, 8)
	require.True(t, h.Allocated(p))

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "Close is idempotent")

	_, err = h.Alloc(8)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, h.Init(), ErrClosed)
	require.ErrorIs(t, h.AddRoots(1, 2), ErrClosed)
	require.False(t, h.Allocated(p))
	h.Free(p)
	h.Collect()
}

func TestHeap_DefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, format.SegmentLimit, o.SegmentLimit)
	assert.Equal(t, format.RootLimit, o.RootLimit)
	assert.Equal(t, format.DefaultStackSize, o.StackSize)
	assert.NotNil(t, o.Fatal)

	z := Options{}.withDefaults()
	assert.Equal(t, o.SegmentLimit, z.SegmentLimit)
	assert.Equal(t, o.StackSize, z.StackSize)
	assert.NotNil(t, z.Fatal)
}

func TestDefaultFatal_Exits(t *testing.T) {
	code := -1
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = defaultExit })

	DefaultFatal(errors.New("boom"))
	require.Equal(t, 2, code)
}

// ============================================================================
// Smoke scenarios
// ============================================================================

func TestHeap_MallocFreeCoalesce(t *testing.T) {
	h := newTestHeap(t, Options{})

	p1 := mustAlloc(t, h, 10)
	p2 := mustAlloc(t, h, 10)
	p3 := mustAlloc(t, h, 10)

	size, err := h.Size(p1)
	require.NoError(t, err)
	require.Equal(t, uint64(16), size)

	h.Free(p1)
	h.Free(p3)
	h.Free(p2)

	segs := h.Segments()
	require.Len(t, segs, 1)
	require.Equal(t, uint64(format.MinSegmentSize), segs[0].Size)

	free := h.FreeBlocks()
	require.Len(t, free, 1)
	require.Equal(t, segs[0].Base, free[0].Addr)
	require.Equal(t, free[0].Addr, free[0].Next)
	require.False(t, h.Allocated(p1))
}

func TestHeap_GrowthSizing(t *testing.T) {
	h := newTestHeap(t, Options{})

	p := mustAlloc(t, h, format.MinSegmentSize+80)

	segs := h.Segments()
	require.Len(t, segs, 2)
	require.Equal(t, uint64(format.MinSegmentSize+80+format.HeaderSize), segs[1].Size)
	h.Free(p)
}

func TestHeap_CollectAfterDroppingReference(t *testing.T) {
	h := newTestHeap(t, Options{})
	m := h.Machine()
	require.NotNil(t, m)

	p := mustAlloc(t, h, 100)
	require.NoError(t, m.Push(uint64(p)))

	h.Collect()
	require.True(t, h.Allocated(p))

	_, err := m.Pop()
	require.NoError(t, err)
	h.Collect()
	require.False(t, h.Allocated(p))
	require.Equal(t, 2, h.Stats().Collector.Cycles)
}

func TestHeap_LoadTest(t *testing.T) {
	h := newTestHeap(t, Options{})

	var p Addr
	for range 2000 {
		p = mustAlloc(t, h, 100)
	}
	require.True(t, h.Allocated(p))
	require.LessOrEqual(t, len(h.Segments()), 2)
	require.Positive(t, h.Stats().Collector.Cycles)
}

func TestHeap_StackGrowsUp(t *testing.T) {
	h := newTestHeap(t, Options{StackGrowsUp: true, StackSize: 1024})
	m := h.Machine()

	p := mustAlloc(t, h, 48)
	require.NoError(t, m.Push(uint64(p)))
	require.Greater(t, m.StackPointer(), m.Base())

	h.Collect()
	require.True(t, h.Allocated(p))
}

// ============================================================================
// Roots and contexts
// ============================================================================

func TestHeap_StaticRoots(t *testing.T) {
	h := newTestHeap(t, Options{})

	s, err := h.Static(60)
	require.NoError(t, err)
	require.NoError(t, h.AddRoots(s+64, s))
	require.Equal(t, s, h.Roots()[0].Start)

	p := mustAlloc(t, h, 32)
	require.NoError(t, h.StoreWord(s+56, uint64(p)))

	h.Collect()
	require.True(t, h.Allocated(p))

	require.NoError(t, h.StoreWord(s+56, 0))
	h.Collect()
	require.False(t, h.Allocated(p))

	_, err = h.Static(0)
	require.ErrorIs(t, err, ErrZeroSize)
}

func TestHeap_CustomContext(t *testing.T) {
	ctx := &fakeContext{regs: make([]uint64, 4)}
	h := newTestHeap(t, Options{Context: ctx})
	require.Nil(t, h.Machine())

	p := mustAlloc(t, h, 16)
	ctx.regs[2] = uint64(p)
	h.Collect()
	require.True(t, h.Allocated(p))

	ctx.regs[2] = 0
	h.Collect()
	require.False(t, h.Allocated(p))
}

// ============================================================================
// Failure modes
// ============================================================================

func TestHeap_RootOverflowIsFatal(t *testing.T) {
	var fatal error
	h := newTestHeap(t, Options{RootLimit: 2, Fatal: func(err error) { fatal = err }})

	require.NoError(t, h.AddRoots(0x10000, 0x10008))
	require.NoError(t, h.AddRoots(0x10008, 0x10010))
	err := h.AddRoots(0x10010, 0x10018)
	require.ErrorIs(t, err, ErrRootOverflow)
	require.ErrorIs(t, fatal, ErrRootOverflow)
}

func TestHeap_SegmentLimitIsFatal(t *testing.T) {
	var fatal error
	h := newTestHeap(t, Options{SegmentLimit: 1, Fatal: func(err error) { fatal = err }})

	mustAlloc(t, h, 8)
	require.Nil(t, fatal)

	p, err := h.Alloc(format.MinSegmentSize)
	require.ErrorIs(t, err, ErrSegmentLimit)
	require.ErrorIs(t, fatal, ErrSegmentLimit)
	require.Equal(t, Nil, p)
}

func TestHeap_OutOfMemoryReturnsNil(t *testing.T) {
	h := newTestHeap(t, Options{
		StackSize:    format.DefaultStackSize,
		MaxHeapBytes: format.DefaultStackSize + format.MinSegmentSize + format.WordSize + format.HeaderSize,
	})

	mustAlloc(t, h, 8)

	p, err := h.Alloc(format.MinSegmentSize)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, Nil, p)

	_, err = h.Static(8)
	require.ErrorIs(t, err, vmem.ErrExhausted)
}

func TestHeap_InvalidFreeIsIgnored(t *testing.T) {
	h := newTestHeap(t, Options{})

	p := mustAlloc(t, h, 32)
	before := h.FreeBlocks()

	h.Free(Nil)
	h.Free(p + 8)
	h.Free(p - format.HeaderSize)
	h.Free(h.Machine().Base() - format.WordSize)

	require.Equal(t, before, h.FreeBlocks())
	require.True(t, h.Allocated(p))
	require.Equal(t, 4, h.Stats().Alloc.FreeIgnored)
}

// ============================================================================
// Payload access
// ============================================================================

func TestHeap_PayloadAccess(t *testing.T) {
	h := newTestHeap(t, Options{})

	p := mustAlloc(t, h, 20)
	b, err := h.Bytes(p)
	require.NoError(t, err)
	require.Len(t, b, 24)

	b[0] = 0x2A
	v, err := h.LoadWord(p)
	require.NoError(t, err)
	require.Equal(t, uint64(0x2A), v)

	require.NoError(t, h.StoreWord(p+16, 7))
	require.Equal(t, byte(7), b[16])

	_, err = h.LoadWord(p + 1)
	require.ErrorIs(t, err, format.ErrMisaligned)
	_, err = h.LoadWord(0x8)
	require.ErrorIs(t, err, vmem.ErrUnmapped)
	require.ErrorIs(t, h.StoreWord(0x8, 1), vmem.ErrUnmapped)

	_, err = h.Bytes(p + 8)
	require.ErrorIs(t, err, ErrNotAllocated)
}

func TestHeap_Realloc(t *testing.T) {
	h := newTestHeap(t, Options{})

	p := mustAlloc(t, h, 16)
	require.NoError(t, h.StoreWord(p, 11))
	require.NoError(t, h.StoreWord(p+8, 22))

	q, err := h.Realloc(p, 64)
	require.NoError(t, err)
	v, _ := h.LoadWord(q + 8)
	require.Equal(t, uint64(22), v)
	require.True(t, h.Allocated(p), "the old block waits for the collector")

	_, err = h.Realloc(q, 0)
	require.ErrorIs(t, err, ErrZeroSize)
}

func TestHeap_Stats(t *testing.T) {
	h := newTestHeap(t, Options{})

	require.NoError(t, h.AddRoots(0x10000, 0x10000))
	mustAlloc(t, h, 8)
	h.Collect()

	s := h.Stats()
	require.Equal(t, 1, s.Segments)
	require.Equal(t, uint64(format.MinSegmentSize), s.SegmentBytes)
	require.Equal(t, 1, s.FreeBlocks)
	require.Equal(t, uint64(format.MinSegmentSize-format.HeaderSize), s.FreeBytes)
	require.Equal(t, 1, s.Roots)
	require.Equal(t, 1, s.Alloc.AllocCalls)
	require.Equal(t, 1, s.Collector.LastReclaimed)
	require.Positive(t, s.MappedBytes)
}
