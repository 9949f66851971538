package format

// Alignment utilities for the managed heap.
// Payload sizes and header addresses are word aligned; region bases are
// aligned to RegionAlignment.

// AlignWord returns n aligned up to the next word boundary.
//
// Example:
//
//	AlignWord(1)  = 8
//	AlignWord(8)  = 8
//	AlignWord(10) = 16
func AlignWord(n uint64) uint64 {
	return (n + WordMask) & ^uint64(WordMask)
}

// AlignAddr returns a aligned up to the next word boundary.
func AlignAddr(a Addr) Addr {
	return Addr(AlignWord(uint64(a)))
}

// AlignRegion returns n aligned up to the next region boundary (64 KiB).
//
// Example:
//
//	AlignRegion(1)       = 0x10000
//	AlignRegion(0x10000) = 0x10000
//	AlignRegion(0x10001) = 0x20000
func AlignRegion(n uint64) uint64 {
	return (n + RegionAlignmentMask) & ^uint64(RegionAlignmentMask)
}

// IsWordAligned reports whether a sits on a word boundary.
func IsWordAligned(a Addr) bool {
	return a&WordMask == 0
}
