// Package scan provides the conservative scanner's view of the mutator:
// the execution-context capability the collector reads registers and the
// stack pointer through, a reference machine implementing it, and the
// word-range iterator every scan phase uses.
//
// A conservative scan treats each aligned 8-byte word of a range as a
// candidate pointer. Nothing about the word's type is known; integers that
// happen to look like heap addresses retain their targets.
package scan

import "github.com/joshuapare/gckit/internal/format"

// Context is the capability the collector needs from the mutator's
// execution environment.
type Context interface {
	// CaptureRegisters copies an opaque, word-aligned snapshot of the
	// execution context (callee-saved and general purpose registers) into
	// buf and returns the number of words written.
	CaptureRegisters(buf []uint64) int

	// StackPointer returns the current top of the mutator stack.
	StackPointer() format.Addr
}

// StackRange orders the recorded baseline and the current stack pointer so
// the scan covers [lo, hi) regardless of growth direction.
func StackRange(baseline, sp format.Addr) (lo, hi format.Addr) {
	if baseline < sp {
		return baseline, sp
	}
	return sp, baseline
}
