// Package script interprets gcctl mutator scripts.
//
// A script drives a gc.Heap one command per line. Lines are split with
// shell quoting rules; '#' starts a comment. Names bind heap addresses on
// the interpreter side only: a name is not a root, so a block stays alive
// only while the machine stack, a register, a root range or another live
// block refers to it.
//
//	alloc NAME SIZE         allocate SIZE bytes (4096, 1KB, "2 MB")
//	realloc NAME SIZE       reallocate NAME, rebinding it to the new block
//	free NAME               release NAME immediately
//	static NAME SIZE        map a static area outside the collected heap
//	root NAME               register NAME's whole area as a root range
//	push VALUE              push a name or number on the machine stack
//	pop [NAME]              pop the stack, optionally binding the value
//	reg I VALUE             set machine register I
//	store NAME OFF VALUE    store a word at NAME+OFF
//	load NAME OFF           print the word at NAME+OFF
//	drop NAME               forget a name
//	collect                 run one collection cycle
//	expect NAME live|dead   fail unless NAME's block is (not) allocated
//	stats                   print heap statistics
//	segments                list heap segments
//	freelist                list the free list from its cursor
//
// VALUE is a bound name or an integer literal (decimal or 0x-prefixed).
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/joshuapare/gckit/heap/scan"
	"github.com/joshuapare/gckit/internal/config"
	"github.com/joshuapare/gckit/pkg/gc"
)

var (
	// ErrUnknownCommand indicates a command word the interpreter lacks.
	ErrUnknownCommand = errors.New("script: unknown command")

	// ErrUsage indicates wrong arguments to a command.
	ErrUsage = errors.New("script: usage")

	// ErrUndefined indicates a name that was never bound.
	ErrUndefined = errors.New("script: undefined name")

	// ErrExpectation indicates a failed expect command.
	ErrExpectation = errors.New("script: expectation failed")

	// ErrNoMachine indicates a stack or register command on a heap without
	// the built-in machine.
	ErrNoMachine = errors.New("script: heap has no machine")
)

// binding is a named address and, for static areas, its size.
type binding struct {
	addr   gc.Addr
	static uint64
}

// Interpreter executes script commands against a heap.
type Interpreter struct {
	heap  *gc.Heap
	out   io.Writer
	names map[string]binding
	line  int
}

// New creates an interpreter writing command output to out.
func New(h *gc.Heap, out io.Writer) *Interpreter {
	return &Interpreter{
		heap:  h,
		out:   out,
		names: make(map[string]binding),
	}
}

// Run executes every line of r, stopping at the first failing command.
func (in *Interpreter) Run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		in.line++
		if err := in.ExecLine(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", in.line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("script: read: %w", err)
	}
	return nil
}

// ExecLine splits one line and executes it. Blank and comment-only lines
// are no-ops.
func (in *Interpreter) ExecLine(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("script: split %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}
	return in.Exec(args)
}

// Lookup returns the address bound to name.
func (in *Interpreter) Lookup(name string) (gc.Addr, bool) {
	b, ok := in.names[name]
	return b.addr, ok
}

// Exec executes one split command.
func (in *Interpreter) Exec(args []string) error {
	cmd, rest := strings.ToLower(args[0]), args[1:]
	switch cmd {
	case "alloc":
		return in.alloc(rest)
	case "realloc":
		return in.realloc(rest)
	case "free":
		return in.free(rest)
	case "static":
		return in.static(rest)
	case "root":
		return in.root(rest)
	case "push":
		return in.push(rest)
	case "pop":
		return in.pop(rest)
	case "reg":
		return in.reg(rest)
	case "store":
		return in.store(rest)
	case "load":
		return in.load(rest)
	case "drop":
		return in.drop(rest)
	case "collect":
		return in.collect(rest)
	case "expect":
		return in.expect(rest)
	case "stats":
		return in.stats(rest)
	case "segments":
		return in.segments(rest)
	case "freelist":
		return in.freelist(rest)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, args[0])
	}
}

func usage(ok bool, form string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUsage, form)
}

// value resolves a bound name or an integer literal.
func (in *Interpreter) value(tok string) (uint64, error) {
	if b, ok := in.names[tok]; ok {
		return uint64(b.addr), nil
	}
	v, err := strconv.ParseUint(tok, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUndefined, tok)
	}
	return v, nil
}

func (in *Interpreter) lookup(name string) (binding, error) {
	b, ok := in.names[name]
	if !ok {
		return binding{}, fmt.Errorf("%w: %q", ErrUndefined, name)
	}
	return b, nil
}

func (in *Interpreter) machine() (*scan.Machine, error) {
	m := in.heap.Machine()
	if m == nil {
		return nil, ErrNoMachine
	}
	return m, nil
}

func size(tok string) (uint64, error) {
	s, err := config.ParseSize(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return uint64(s), nil
}

func (in *Interpreter) printf(format string, args ...any) {
	fmt.Fprintf(in.out, format, args...)
}
