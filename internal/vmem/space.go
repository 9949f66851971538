// Package vmem implements the managed address space.
//
// Every byte the collector can reach (heap segments, the machine stack,
// static root areas) is OS memory mapped into one Space and given a heap
// address. vmem is the only package that turns a heap address into bytes:
// the allocator, the scanner and the public API all go through Space.
//
// # Layout
//
// Regions are placed in ascending address order starting at SpaceBase.
// Every region base is aligned to RegionAlignment and one unmapped
// RegionAlignment-sized guard separates a region from the next, so a word
// that happens to point just past a region resolves to nothing:
//
//	0x00000 ... 0x0FFFF   never mapped (Nil and small integers)
//	0x10000               first region
//	align(end) + 0x10000  next region
//
// # Thread Safety
//
// Space is not safe for concurrent use.
package vmem

import (
	"errors"
	"fmt"
	"sort"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/osmem"
)

var (
	// ErrExhausted indicates the configured mapping ceiling was reached or
	// the OS refused to supply more memory.
	ErrExhausted = errors.New("vmem: address space exhausted")

	// ErrUnmapped indicates an address outside every mapped region.
	ErrUnmapped = errors.New("vmem: address not mapped")

	// ErrClosed indicates use of a space after Close.
	ErrClosed = errors.New("vmem: space closed")
)

// Kind classifies a mapped region.
type Kind uint8

const (
	// KindSegment is a heap segment owned by the segment manager.
	KindSegment Kind = iota + 1
	// KindStack is a machine stack.
	KindStack
	// KindStatic is a static area outside the managed heap (the analogue of
	// a program's globals).
	KindStatic
)

// String returns a human-readable region kind.
func (k Kind) String() string {
	switch k {
	case KindSegment:
		return "segment"
	case KindStack:
		return "stack"
	case KindStatic:
		return "static"
	default:
		return "unknown"
	}
}

// Region is a contiguous mapped range of the address space.
type Region struct {
	Base format.Addr
	Data []byte
	Kind Kind

	release func() error
}

// End returns the first address past the region.
func (r *Region) End() format.Addr {
	return r.Base + format.Addr(len(r.Data))
}

// Contains reports whether a lies inside the region.
func (r *Region) Contains(a format.Addr) bool {
	return a >= r.Base && a < r.End()
}

// Size returns the region length in bytes.
func (r *Region) Size() int {
	return len(r.Data)
}

// Space is the managed address space.
type Space struct {
	regions []*Region // ascending by Base
	next    format.Addr
	mapped  int64
	limit   int64 // 0 = unlimited
	closed  bool

	// acquire is swapped by tests to simulate OS exhaustion.
	acquire func(size int) ([]byte, func() error, error)
}

// New creates an empty address space. limit caps the total number of
// mapped bytes; 0 means unlimited.
func New(limit int64) *Space {
	return &Space{
		regions: make([]*Region, 0, 16),
		next:    format.SpaceBase,
		limit:   limit,
		acquire: osmem.Acquire,
	}
}

// Map acquires size zero-filled bytes from the OS and places them at the
// next free heap address.
func (s *Space) Map(size int, kind Kind) (*Region, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if size <= 0 {
		return nil, fmt.Errorf("vmem: map %d bytes: %w", size, osmem.ErrBadSize)
	}
	if s.limit > 0 && s.mapped+int64(size) > s.limit {
		return nil, fmt.Errorf("vmem: map %d bytes (mapped %d, limit %d): %w",
			size, s.mapped, s.limit, ErrExhausted)
	}

	data, release, err := s.acquire(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExhausted, err)
	}

	r := &Region{
		Base:    s.next,
		Data:    data,
		Kind:    kind,
		release: release,
	}
	s.regions = append(s.regions, r)
	s.mapped += int64(size)
	s.next = format.Addr(format.AlignRegion(uint64(r.End()))) + format.RegionAlignment
	return r, nil
}

// Resolve returns the region containing a.
func (s *Space) Resolve(a format.Addr) (*Region, bool) {
	if a < format.SpaceBase || len(s.regions) == 0 {
		return nil, false
	}
	// First region whose end is past a.
	i := sort.Search(len(s.regions), func(i int) bool {
		return s.regions[i].End() > a
	})
	if i == len(s.regions) || !s.regions[i].Contains(a) {
		return nil, false
	}
	return s.regions[i], true
}

// NextRegion returns the region containing a or, failing that, the first
// region above a.
func (s *Space) NextRegion(a format.Addr) (*Region, bool) {
	i := sort.Search(len(s.regions), func(i int) bool {
		return s.regions[i].End() > a
	})
	if i == len(s.regions) {
		return nil, false
	}
	return s.regions[i], true
}

// Word reads the little-endian word at a. ok is false when the word is not
// entirely inside one mapped region.
func (s *Space) Word(a format.Addr) (uint64, bool) {
	r, found := s.Resolve(a)
	if !found {
		return 0, false
	}
	off := int(a - r.Base)
	if off+format.WordSize > len(r.Data) {
		return 0, false
	}
	return format.ReadU64(r.Data, off), true
}

// ReadWord is Word without the ok flag; unmapped words read as zero.
func (s *Space) ReadWord(a format.Addr) uint64 {
	v, _ := s.Word(a)
	return v
}

// ReadAddr reads the heap address stored at a.
func (s *Space) ReadAddr(a format.Addr) format.Addr {
	return format.Addr(s.ReadWord(a))
}

// PutWord stores v at a.
func (s *Space) PutWord(a format.Addr, v uint64) error {
	if !format.IsWordAligned(a) {
		return fmt.Errorf("vmem: store at 0x%x: %w", a, format.ErrMisaligned)
	}
	r, found := s.Resolve(a)
	if !found {
		return fmt.Errorf("vmem: store at 0x%x: %w", a, ErrUnmapped)
	}
	off := int(a - r.Base)
	if off+format.WordSize > len(r.Data) {
		return fmt.Errorf("vmem: store at 0x%x: %w", a, format.ErrTruncated)
	}
	format.PutU64(r.Data, off, v)
	return nil
}

// WriteWord is PutWord for addresses the caller knows are mapped (block
// headers). Stores to unmapped or misaligned addresses are dropped.
func (s *Space) WriteWord(a format.Addr, v uint64) {
	_ = s.PutWord(a, v)
}

// Slice returns the n bytes starting at a. The slice aliases the mapping.
func (s *Space) Slice(a format.Addr, n int) ([]byte, error) {
	r, found := s.Resolve(a)
	if !found {
		return nil, fmt.Errorf("vmem: slice at 0x%x: %w", a, ErrUnmapped)
	}
	off := int(a - r.Base)
	if n < 0 || off+n > len(r.Data) {
		return nil, fmt.Errorf("vmem: slice [0x%x,+%d): %w", a, n, format.ErrTruncated)
	}
	return r.Data[off : off+n : off+n], nil
}

// Zero clears n bytes starting at a.
func (s *Space) Zero(a format.Addr, n int) {
	b, err := s.Slice(a, n)
	if err != nil {
		return
	}
	clear(b)
}

// Copy copies n bytes from src to dst and returns the number copied.
func (s *Space) Copy(dst, src format.Addr, n int) int {
	d, err := s.Slice(dst, n)
	if err != nil {
		return 0
	}
	b, err := s.Slice(src, n)
	if err != nil {
		return 0
	}
	return copy(d, b)
}

// Regions returns the mapped regions in address order.
func (s *Space) Regions() []*Region {
	out := make([]*Region, len(s.regions))
	copy(out, s.regions)
	return out
}

// Mapped returns the total number of mapped bytes.
func (s *Space) Mapped() int64 {
	return s.mapped
}

// Limit returns the mapping ceiling (0 = unlimited).
func (s *Space) Limit() int64 {
	return s.limit
}

// Close releases every region back to the OS. The space is unusable
// afterwards.
func (s *Space) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, r := range s.regions {
		if r.release != nil {
			if err := r.release(); err != nil {
				errs = append(errs, err)
			}
		}
		r.Data = nil
	}
	s.regions = nil
	s.mapped = 0
	return errors.Join(errs...)
}
