// Package format houses the low-level layout of the managed heap: the word
// size, the block header layout, flag bits, registry ceilings and the
// alignment and encoding helpers shared by every heap package. Keeping the
// layout here lets the allocator, the collector and the tooling agree on a
// single definition without importing each other.
package format

// Addr is a heap address. Heap addresses live in the managed address space
// (see internal/vmem) and are what the host program stores in payloads,
// on the machine stack and in root ranges.
type Addr uint64

// Nil is the null heap address. No region is ever mapped at address 0.
const Nil Addr = 0

const (
	// WordSize is the width of a pointer-sized candidate word. The heap is
	// laid out for a single 64-bit calling convention.
	WordSize = 8

	// WordMask is the bitmask used for aligning to word boundaries (WordSize - 1).
	WordMask = WordSize - 1

	// HeaderSize is the size of the block header preceding every payload.
	// Layout (little-endian words):
	//   0x00  flags
	//   0x08  payload size (excludes header)
	//   0x10  next free header (valid only while the block is free)
	HeaderSize = 3 * WordSize

	// Header field offsets.
	HeaderFlagsOffset    = 0x00
	HeaderSizeOffset     = 0x08
	HeaderNextFreeOffset = 0x10
)

// Block flags.
const (
	// FlagAlloc marks a block as handed out to the host.
	FlagAlloc uint64 = 0x1

	// FlagMark marks an allocated block as reachable during a collection.
	// Outside a cycle no block carries it.
	FlagMark uint64 = 0x2
)

const (
	// MinSegmentSize is the default segment size (16 KiB). Requests too
	// large to be split off a segment of this size get a segment of
	// exactly request+HeaderSize instead.
	MinSegmentSize = 0x4000

	// SegmentLimit is the default capacity of the segment registry.
	// Exhausting it is fatal.
	SegmentLimit = 10000

	// RootLimit is the default capacity of the root registry.
	// Exhausting it is fatal.
	RootLimit = 1000

	// MaxAllocSize bounds a single request. Larger sizes are invalid.
	MaxAllocSize = 1 << 40
)

const (
	// SpaceBase is the first heap address handed out by the address space.
	// Everything below it (small integers in particular) never resolves.
	SpaceBase = 0x10000

	// RegionAlignment is the alignment of every mapped region's base.
	// One unmapped RegionAlignment-sized guard separates neighbouring regions.
	RegionAlignment = 0x10000

	// RegionAlignmentMask is the bitmask used for aligning region bases.
	RegionAlignmentMask = RegionAlignment - 1
)

const (
	// NumRegisters is the number of general purpose registers of the
	// reference machine.
	NumRegisters = 16

	// MaxContextWords bounds a captured execution context.
	MaxContextWords = 64

	// DefaultStackSize is the default size of the reference machine stack.
	DefaultStackSize = 0x10000
)
