// Package segment implements the heap segment manager.
//
// A segment is a contiguous region obtained from the OS and carved into
// blocks. Segments are appended to a fixed-capacity registry and are never
// removed or shrunk for the life of the heap. A freshly added segment is one
// free block whose NextFree points to itself (a one-node free list); the
// allocator merges it into the global free list.
//
// # Sizing
//
//	req + HeaderSize <= MinSegmentSize  → MinSegmentSize
//	otherwise                           → req + HeaderSize
//
// The OS is asked for size + WordSize + HeaderSize bytes so the usable base
// can always be word aligned.
//
// # Failure modes
//
//   - OS refusal or the mapping ceiling: ErrOutOfMemory, recoverable.
//   - Registry full: fatal. The manager reports ErrSegmentLimit to its fatal
//     handler, which by default terminates the process.
package segment

import (
	"errors"
	"fmt"
	"os"

	"github.com/joshuapare/gckit/heap/block"
	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// Runtime debug flag for growth logging - controlled by GCKIT_LOG_ALLOC env var.
var logGrow = os.Getenv("GCKIT_LOG_ALLOC") != ""

var (
	// ErrOutOfMemory indicates the OS could not supply a new segment.
	ErrOutOfMemory = errors.New("segment: out of memory")

	// ErrSegmentLimit indicates the segment registry is full. It is fatal.
	ErrSegmentLimit = errors.New("segment: OutOfMemory Error: segment registry full")
)

// Segment is one registered heap segment.
type Segment struct {
	Base format.Addr // word-aligned address of the first header
	Size uint64      // usable bytes, header inclusive

	region *vmem.Region
}

// End returns the first address past the segment.
func (s *Segment) End() format.Addr {
	return s.Base + format.Addr(s.Size)
}

// Contains reports whether a lies inside the segment.
func (s *Segment) Contains(a format.Addr) bool {
	return a >= s.Base && a < s.End()
}

// First returns the header at the segment base.
func (s *Segment) First(sp *vmem.Space) block.Header {
	return block.At(sp, s.Base)
}

// FatalFunc reports an unrecoverable condition. Implementations are
// expected not to return; if one does, the triggering call fails with the
// error instead.
type FatalFunc func(err error)

// Manager owns the segment registry.
type Manager struct {
	sp    *vmem.Space
	segs  []*Segment
	limit int
	fatal FatalFunc

	// hit caches the last segment Locate resolved. Conservative scans probe
	// neighbouring words, which mostly land in the same segment.
	hit *Segment

	stats Stats
}

// Stats holds segment manager counters.
type Stats struct {
	Added      int    // segments created
	Bytes      uint64 // usable bytes across all segments
	Failed     int    // OS acquisitions that failed
	LookupHits int    // Locate calls answered by the cache
	Lookups    int    // total Locate calls
}

// NewManager creates an empty registry over sp. limit <= 0 selects
// format.SegmentLimit; a nil fatal handler panics.
func NewManager(sp *vmem.Space, limit int, fatal FatalFunc) *Manager {
	if limit <= 0 {
		limit = format.SegmentLimit
	}
	if fatal == nil {
		fatal = func(err error) { panic(err) }
	}
	return &Manager{
		sp:    sp,
		segs:  make([]*Segment, 0, 16),
		limit: limit,
		fatal: fatal,
	}
}

// SizeFor returns the header-inclusive segment size Add uses for req.
//
// A request whose block can be split off a MinSegmentSize segment gets one.
// Anything larger gets a segment whose single block fits req exactly, since
// a block of size s only serves req when s == req or s > req+HeaderSize.
func SizeFor(req uint64) uint64 {
	req = format.AlignWord(req)
	if req+2*format.HeaderSize < format.MinSegmentSize {
		return format.MinSegmentSize
	}
	return req + format.HeaderSize
}

// Add acquires a new segment able to hold req payload bytes and forms it
// into a single free block linked to itself. It returns that block.
func (m *Manager) Add(req uint64) (block.Header, error) {
	if len(m.segs) >= m.limit {
		err := fmt.Errorf("%w (limit %d)", ErrSegmentLimit, m.limit)
		m.fatal(err)
		return block.Header{}, err
	}

	size := SizeFor(req)

	r, err := m.sp.Map(int(size)+format.WordSize+format.HeaderSize, vmem.KindSegment)
	if err != nil {
		m.stats.Failed++
		if logGrow {
			fmt.Fprintf(os.Stderr, "[GROW] segment of %d bytes refused: %v\n", size, err)
		}
		return block.Header{}, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}

	seg := &Segment{
		Base:   format.AlignAddr(r.Base),
		Size:   size,
		region: r,
	}
	m.segs = append(m.segs, seg)
	m.stats.Added++
	m.stats.Bytes += size

	// The mapping is zero-filled; only the header needs writing.
	h := seg.First(m.sp)
	h.Init(0, size-format.HeaderSize, h.Addr)

	if logGrow {
		fmt.Fprintf(os.Stderr, "[GROW] segment #%d created: base=0x%X, size=%d, usable=%d\n",
			len(m.segs), uint64(seg.Base), size, h.Size())
	}
	return h, nil
}

// Locate returns the segment containing a.
func (m *Manager) Locate(a format.Addr) (*Segment, bool) {
	m.stats.Lookups++
	if m.hit != nil && m.hit.Contains(a) {
		m.stats.LookupHits++
		return m.hit, true
	}
	for _, s := range m.segs {
		if s.Contains(a) {
			m.hit = s
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of registered segments.
func (m *Manager) Len() int {
	return len(m.segs)
}

// At returns the i-th segment in registration order.
func (m *Manager) At(i int) *Segment {
	return m.segs[i]
}

// Segments returns a snapshot of the registry in registration order.
func (m *Manager) Segments() []Segment {
	out := make([]Segment, len(m.segs))
	for i, s := range m.segs {
		out[i] = *s
	}
	return out
}

// Bytes returns the usable bytes across all segments.
func (m *Manager) Bytes() uint64 {
	return m.stats.Bytes
}

// Limit returns the registry capacity.
func (m *Manager) Limit() int {
	return m.limit
}

// Space returns the address space segments are mapped into.
func (m *Manager) Space() *vmem.Space {
	return m.sp
}

// Stats returns a copy of the counters.
func (m *Manager) Stats() Stats {
	return m.stats
}
