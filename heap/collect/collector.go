// Package collect implements the conservative mark-sweep collector.
//
// # Cycle
//
// One cycle is stop-the-world and runs to completion:
//
//  1. Registers: the execution context's register snapshot, plus addresses
//     the allocator has pinned for an in-flight Realloc.
//  2. Stack: every word between the baseline recorded by Init and the
//     current stack pointer, in either growth direction.
//  3. Roots: every registered root range, in registration order.
//  4. Sweep: every segment in address order. Marked blocks are unmarked;
//     unmarked allocated blocks are returned to the free list.
//
// A candidate word retains a block when it resolves to an address inside
// the block's payload (interior pointers count, header bytes do not).
// Newly marked blocks go on a worklist; draining it scans each payload word
// by word, so arbitrarily deep object graphs never recurse.
//
// Outside a cycle no block carries FlagMark.
package collect

import (
	"fmt"
	"os"
	"time"

	"github.com/joshuapare/gckit/heap/alloc"
	"github.com/joshuapare/gckit/heap/block"
	"github.com/joshuapare/gckit/heap/roots"
	"github.com/joshuapare/gckit/heap/scan"
	"github.com/joshuapare/gckit/heap/segment"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// Runtime debug flag for collection logging - controlled by GCKIT_LOG_GC env var.
var logGC = os.Getenv("GCKIT_LOG_GC") != ""

// Collector runs mark-sweep cycles over an allocator's heap.
type Collector struct {
	sp    *vmem.Space
	segs  *segment.Manager
	alloc *alloc.Allocator
	roots *roots.Registry
	ctx   scan.Context

	baseline    format.Addr
	initialized bool
	running     bool

	work   []block.Header
	regBuf [format.MaxContextWords]uint64

	cycle cycleStats
	stats Stats
}

// New creates a collector. ctx may be nil, in which case registers and the
// stack are not scanned and only root ranges retain blocks.
func New(a *alloc.Allocator, r *roots.Registry, ctx scan.Context) *Collector {
	return &Collector{
		sp:    a.Space(),
		segs:  a.Segments(),
		alloc: a,
		roots: r,
		ctx:   ctx,
		work:  make([]block.Header, 0, 64),
	}
}

// Init records the current stack pointer as the stack baseline. Stack
// slots older than the baseline are never scanned.
func (c *Collector) Init() {
	if c.ctx != nil {
		c.baseline = c.ctx.StackPointer()
	}
	c.initialized = true
}

// Initialized reports whether Init has run.
func (c *Collector) Initialized() bool {
	return c.initialized
}

// Baseline returns the stack baseline recorded by Init.
func (c *Collector) Baseline() format.Addr {
	return c.baseline
}

// Collect runs one full cycle. It does nothing before Init and does not
// nest.
func (c *Collector) Collect() {
	if !c.initialized || c.running {
		return
	}
	c.running = true
	defer func() { c.running = false }()

	start := time.Now()
	c.cycle = cycleStats{}

	c.scanRegisters()
	c.drain()
	c.scanStack()
	c.drain()
	c.scanRoots()
	c.drain()
	c.sweep()

	c.stats.record(c.cycle, time.Since(start))

	if logGC {
		fmt.Fprintf(os.Stderr, "[GC] cycle #%d: candidates=%d marked=%d reclaimed=%d (%d bytes) in %s\n",
			c.stats.Cycles, c.cycle.candidates, c.cycle.marked, c.cycle.reclaimed,
			c.cycle.reclaimedBytes, c.stats.LastPause)
	}
}

// scanRegisters treats the register snapshot and the allocator's pins as
// candidate words.
func (c *Collector) scanRegisters() {
	if c.ctx != nil {
		n := c.ctx.CaptureRegisters(c.regBuf[:])
		for _, w := range c.regBuf[:n] {
			c.markCandidate(w)
		}
	}
	for _, p := range c.alloc.Pins() {
		c.markCandidate(uint64(p))
	}
}

// scanStack scans [baseline, sp) ordered low-first.
func (c *Collector) scanStack() {
	if c.ctx == nil {
		return
	}
	lo, hi := scan.StackRange(c.baseline, c.ctx.StackPointer())
	scan.Words(c.sp, lo, hi, c.visit)
}

func (c *Collector) scanRoots() {
	for _, r := range c.roots.Ranges() {
		scan.Words(c.sp, r.Start, r.End, c.visit)
	}
}

func (c *Collector) visit(_ format.Addr, w uint64) {
	c.markCandidate(w)
}

// markCandidate marks the allocated block whose payload contains w, if any,
// and queues it for scanning.
func (c *Collector) markCandidate(w uint64) {
	c.cycle.candidates++

	a := format.Addr(w)
	seg, ok := c.segs.Locate(a)
	if !ok {
		return
	}
	h, ok := c.alloc.LocateHeader(seg, a)
	if !ok || !h.Allocated() || h.Has(format.FlagMark) {
		return
	}
	h.Set(format.FlagMark)
	c.cycle.marked++
	c.cycle.markedBytes += h.Size()
	c.work = append(c.work, h)
}

// drain scans queued payloads until the worklist is empty.
func (c *Collector) drain() {
	for len(c.work) > 0 {
		h := c.work[len(c.work)-1]
		c.work = c.work[:len(c.work)-1]
		scan.Words(c.sp, h.Payload(), h.End(), c.visit)
	}
	if cap(c.work) > maxRetainedWork {
		c.work = make([]block.Header, 0, 64)
	}
}

// maxRetainedWork caps the worklist capacity kept between cycles.
const maxRetainedWork = 1 << 16

// sweep unmarks survivors and reclaims every other allocated block.
func (c *Collector) sweep() {
	for i := range c.segs.Len() {
		c.alloc.WalkSegment(c.segs.At(i), func(h block.Header) bool {
			switch {
			case !h.Allocated():
			case h.Has(format.FlagMark):
				h.Clear(format.FlagMark)
			default:
				c.cycle.reclaimed++
				c.cycle.reclaimedBytes += h.Size()
				c.alloc.Reclaim(h)
			}
			return true
		})
	}
}
