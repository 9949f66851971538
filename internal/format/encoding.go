package format

import "encoding/binary"

// Binary encoding utilities for little-endian words.
//
// Every word in the managed heap (header fields, payload words, stack slots,
// root slots) is stored little-endian regardless of the host byte order, so
// a conservative scan reads exactly what the host wrote.
//
// Implementation: Uses encoding/binary.LittleEndian. The compiler inlines
// these calls; an unsafe variant brought no measurable benefit.

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// PutAddr writes a heap address to the buffer at the specified offset.
func PutAddr(b []byte, off int, a Addr) {
	PutU64(b, off, uint64(a))
}

// ReadAddr reads a heap address from the buffer at the specified offset.
func ReadAddr(b []byte, off int) Addr {
	return Addr(ReadU64(b, off))
}
