// Package block provides a view over the intrusive block header that
// precedes every payload in a heap segment.
//
// A header plays two roles depending on FlagAlloc. While allocated it is
// allocation metadata (flags, payload size); while free it is also a node of
// the circular free list (NextFree). Both roles share one physical record:
//
//	+0x00 flags     FlagAlloc | FlagMark
//	+0x08 size      payload bytes, excluding the header, word aligned
//	+0x10 nextFree  next free header; meaningful only while free
//	+0x18 payload   size bytes
//
// The byte after a payload is the next header or the segment end.
package block

import (
	"fmt"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

// Header is a view of the block header at Addr. It holds no state of its
// own; every accessor reads or writes the mapped memory.
type Header struct {
	sp   *vmem.Space
	Addr format.Addr
}

// At returns the header view at a.
func At(sp *vmem.Space, a format.Addr) Header {
	return Header{sp: sp, Addr: a}
}

// FromPayload returns the header view for the payload address p.
func FromPayload(sp *vmem.Space, p format.Addr) Header {
	return Header{sp: sp, Addr: p - format.HeaderSize}
}

// IsNil reports whether the view points nowhere.
func (h Header) IsNil() bool {
	return h.Addr == format.Nil
}

// Flags returns the raw flag word.
func (h Header) Flags() uint64 {
	return h.sp.ReadWord(h.Addr + format.HeaderFlagsOffset)
}

// SetFlags overwrites the flag word.
func (h Header) SetFlags(f uint64) {
	h.sp.WriteWord(h.Addr+format.HeaderFlagsOffset, f)
}

// Has reports whether every bit of f is set.
func (h Header) Has(f uint64) bool {
	return h.Flags()&f == f
}

// Set sets the bits of f.
func (h Header) Set(f uint64) {
	h.SetFlags(h.Flags() | f)
}

// Clear clears the bits of f.
func (h Header) Clear(f uint64) {
	h.SetFlags(h.Flags() &^ f)
}

// Allocated reports whether the block is handed out.
func (h Header) Allocated() bool {
	return h.Has(format.FlagAlloc)
}

// Marked reports whether the block is allocated and marked.
func (h Header) Marked() bool {
	return h.Has(format.FlagAlloc | format.FlagMark)
}

// Size returns the payload size in bytes.
func (h Header) Size() uint64 {
	return h.sp.ReadWord(h.Addr + format.HeaderSizeOffset)
}

// SetSize overwrites the payload size.
func (h Header) SetSize(n uint64) {
	h.sp.WriteWord(h.Addr+format.HeaderSizeOffset, n)
}

// NextFree returns the next free header address.
func (h Header) NextFree() format.Addr {
	return h.sp.ReadAddr(h.Addr + format.HeaderNextFreeOffset)
}

// SetNextFree links the header to the free header at a.
func (h Header) SetNextFree(a format.Addr) {
	h.sp.WriteWord(h.Addr+format.HeaderNextFreeOffset, uint64(a))
}

// NextFreeHeader returns the view of the next free header.
func (h Header) NextFreeHeader() Header {
	return At(h.sp, h.NextFree())
}

// Payload returns the payload address.
func (h Header) Payload() format.Addr {
	return h.Addr + format.HeaderSize
}

// End returns the first address past the payload: the next header or the
// segment end.
func (h Header) End() format.Addr {
	return h.Payload() + format.Addr(h.Size())
}

// Next returns the view of the physically following header.
func (h Header) Next() Header {
	return At(h.sp, h.End())
}

// Contains reports whether a lies inside the payload.
func (h Header) Contains(a format.Addr) bool {
	return a >= h.Payload() && a < h.End()
}

// Init writes a fresh header: size bytes of payload, the given flags and
// free-list link.
func (h Header) Init(flags, size uint64, next format.Addr) {
	h.SetFlags(flags)
	h.SetSize(size)
	h.SetNextFree(next)
}

// ZeroPayload clears the payload bytes.
func (h Header) ZeroPayload() {
	h.sp.Zero(h.Payload(), int(h.Size()))
}

// String returns a debug representation.
func (h Header) String() string {
	state := "free"
	switch {
	case h.Marked():
		state = "marked"
	case h.Allocated():
		state = "alloc"
	}
	return fmt.Sprintf("hdr@0x%x{%s size=%d next=0x%x}", uint64(h.Addr), state, h.Size(), uint64(h.NextFree()))
}
