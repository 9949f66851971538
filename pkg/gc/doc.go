/*
Package gc provides a conservative mark-sweep garbage-collected heap for Go
programs that keep an object graph outside the Go heap, such as interpreters
and virtual machines.

# Quick Start

	h, err := gc.New(gc.DefaultOptions())
	if err != nil {
	    log.Fatal(err)
	}
	defer h.Close()

	if err := h.Init(); err != nil {
	    log.Fatal(err)
	}

	p, err := h.Alloc(64)
	if err != nil {
	    log.Fatal(err)
	}
	h.Machine().Push(uint64(p)) // keep p reachable

# Addresses

Alloc returns heap addresses (gc.Addr), not Go pointers. They refer to memory
obtained directly from the operating system, so blocks never move and the Go
collector never sees them. Read and write payloads with LoadWord, StoreWord
or Bytes.

# Roots

A block survives a collection when a word that looks like an address inside
its payload is found in:

  - the register file of the execution context (gc.Machine by default)
  - the execution context's stack, between the baseline recorded by Init and
    the current stack pointer
  - any range registered with AddRoots, such as areas created by Static
  - the payload of another surviving block

Scanning is conservative: any word with the right value retains a block,
whatever it really holds.

# Collection

Collections are triggered automatically: when an allocation finds no free
block large enough, one full cycle runs before the heap grows. Collect runs a
cycle explicitly.

# Failure modes

  - Alloc returns gc.Nil and an error wrapping ErrOutOfMemory when the OS or
    Options.MaxHeapBytes refuses a new segment.
  - Exhausting the segment registry or the root registry is fatal and is
    reported through Options.Fatal (default: message on stderr, exit 2).
  - Free ignores anything that is not the payload address of a live block.

# Thread Safety

A Heap is not safe for concurrent use. It models a single mutator; callers
must synchronize externally.
*/
package gc
