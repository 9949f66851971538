package script

import (
	"fmt"
	"strconv"

	"github.com/joshuapare/gckit/pkg/gc"
)

func (in *Interpreter) alloc(args []string) error {
	if err := usage(len(args) == 2, "alloc NAME SIZE"); err != nil {
		return err
	}
	n, err := size(args[1])
	if err != nil {
		return err
	}
	p, err := in.heap.Alloc(n)
	if err != nil {
		return fmt.Errorf("alloc %s: %w", args[0], err)
	}
	in.names[args[0]] = binding{addr: p}
	in.printf("%s = 0x%x (%d bytes)\n", args[0], uint64(p), n)
	return nil
}

func (in *Interpreter) realloc(args []string) error {
	if err := usage(len(args) == 2, "realloc NAME SIZE"); err != nil {
		return err
	}
	b, err := in.lookup(args[0])
	if err != nil {
		return err
	}
	n, err := size(args[1])
	if err != nil {
		return err
	}
	p, err := in.heap.Realloc(b.addr, n)
	if err != nil {
		return fmt.Errorf("realloc %s: %w", args[0], err)
	}
	in.names[args[0]] = binding{addr: p}
	in.printf("%s = 0x%x (%d bytes, was 0x%x)\n", args[0], uint64(p), n, uint64(b.addr))
	return nil
}

func (in *Interpreter) free(args []string) error {
	if err := usage(len(args) == 1, "free NAME"); err != nil {
		return err
	}
	b, err := in.lookup(args[0])
	if err != nil {
		return err
	}
	in.heap.Free(b.addr)
	return nil
}

func (in *Interpreter) static(args []string) error {
	if err := usage(len(args) == 2, "static NAME SIZE"); err != nil {
		return err
	}
	n, err := size(args[1])
	if err != nil {
		return err
	}
	p, err := in.heap.Static(int(n))
	if err != nil {
		return fmt.Errorf("static %s: %w", args[0], err)
	}
	in.names[args[0]] = binding{addr: p, static: n}
	in.printf("%s = 0x%x (static, %d bytes)\n", args[0], uint64(p), n)
	return nil
}

// root registers a static area, or the payload of a live block, as a root
// range.
func (in *Interpreter) root(args []string) error {
	if err := usage(len(args) == 1, "root NAME"); err != nil {
		return err
	}
	b, err := in.lookup(args[0])
	if err != nil {
		return err
	}
	n := b.static
	if n == 0 {
		if n, err = in.heap.Size(b.addr); err != nil {
			return fmt.Errorf("root %s: %w", args[0], err)
		}
	}
	return in.heap.AddRoots(b.addr, b.addr+gc.Addr(n))
}

func (in *Interpreter) push(args []string) error {
	if err := usage(len(args) == 1, "push VALUE"); err != nil {
		return err
	}
	v, err := in.value(args[0])
	if err != nil {
		return err
	}
	m, err := in.machine()
	if err != nil {
		return err
	}
	return m.Push(v)
}

func (in *Interpreter) pop(args []string) error {
	if err := usage(len(args) <= 1, "pop [NAME]"); err != nil {
		return err
	}
	m, err := in.machine()
	if err != nil {
		return err
	}
	v, err := m.Pop()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		in.names[args[0]] = binding{addr: gc.Addr(v)}
	}
	return nil
}

func (in *Interpreter) reg(args []string) error {
	if err := usage(len(args) == 2, "reg I VALUE"); err != nil {
		return err
	}
	i, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: register %q", ErrUsage, args[0])
	}
	v, err := in.value(args[1])
	if err != nil {
		return err
	}
	m, err := in.machine()
	if err != nil {
		return err
	}
	return m.SetReg(i, v)
}

// slot resolves NAME OFF to an address.
func (in *Interpreter) slot(name, off string) (gc.Addr, error) {
	b, err := in.lookup(name)
	if err != nil {
		return gc.Nil, err
	}
	o, err := strconv.ParseUint(off, 0, 64)
	if err != nil {
		return gc.Nil, fmt.Errorf("%w: offset %q", ErrUsage, off)
	}
	return b.addr + gc.Addr(o), nil
}

func (in *Interpreter) store(args []string) error {
	if err := usage(len(args) == 3, "store NAME OFF VALUE"); err != nil {
		return err
	}
	a, err := in.slot(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := in.value(args[2])
	if err != nil {
		return err
	}
	return in.heap.StoreWord(a, v)
}

func (in *Interpreter) load(args []string) error {
	if err := usage(len(args) == 2, "load NAME OFF"); err != nil {
		return err
	}
	a, err := in.slot(args[0], args[1])
	if err != nil {
		return err
	}
	v, err := in.heap.LoadWord(a)
	if err != nil {
		return err
	}
	in.printf("%s+%s = 0x%x\n", args[0], args[1], v)
	return nil
}

func (in *Interpreter) drop(args []string) error {
	if err := usage(len(args) == 1, "drop NAME"); err != nil {
		return err
	}
	if _, err := in.lookup(args[0]); err != nil {
		return err
	}
	delete(in.names, args[0])
	return nil
}

func (in *Interpreter) collect(args []string) error {
	if err := usage(len(args) == 0, "collect"); err != nil {
		return err
	}
	in.heap.Collect()
	s := in.heap.Stats().Collector
	in.printf("collect #%d: marked %d, reclaimed %d (%d bytes)\n",
		s.Cycles, s.LastMarked, s.LastReclaimed, s.LastReclaimedBytes)
	return nil
}

func (in *Interpreter) expect(args []string) error {
	if err := usage(len(args) == 2 && (args[1] == "live" || args[1] == "dead"),
		"expect NAME live|dead"); err != nil {
		return err
	}
	b, err := in.lookup(args[0])
	if err != nil {
		return err
	}
	live := in.heap.Allocated(b.addr)
	if live != (args[1] == "live") {
		state := "dead"
		if live {
			state = "live"
		}
		return fmt.Errorf("%w: %s is %s, want %s", ErrExpectation, args[0], state, args[1])
	}
	return nil
}

func (in *Interpreter) stats(args []string) error {
	if err := usage(len(args) == 0, "stats"); err != nil {
		return err
	}
	in.heap.PrintStats(in.out)
	return nil
}

func (in *Interpreter) segments(args []string) error {
	if err := usage(len(args) == 0, "segments"); err != nil {
		return err
	}
	for i, s := range in.heap.Segments() {
		in.printf("segment %d: 0x%x..0x%x (%d bytes)\n", i, uint64(s.Base), uint64(s.End()), s.Size)
	}
	return nil
}

func (in *Interpreter) freelist(args []string) error {
	if err := usage(len(args) == 0, "freelist"); err != nil {
		return err
	}
	blocks := in.heap.FreeBlocks()
	if len(blocks) == 0 {
		in.printf("free list empty\n")
		return nil
	}
	for _, fb := range blocks {
		in.printf("free 0x%x size=%d next=0x%x\n", uint64(fb.Addr), fb.Size, uint64(fb.Next))
	}
	return nil
}
