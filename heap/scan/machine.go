package scan

import (
	"errors"
	"fmt"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

var (
	// ErrStackOverflow indicates a push past the end of the machine stack.
	ErrStackOverflow = errors.New("scan: stack overflow")

	// ErrStackUnderflow indicates a pop or peek below the stack baseline.
	ErrStackUnderflow = errors.New("scan: stack underflow")

	// ErrBadRegister indicates a register index outside the register file.
	ErrBadRegister = errors.New("scan: register index out of range")
)

// Growth is the direction a machine stack grows in.
type Growth int

const (
	// GrowDown pushes toward lower addresses (the common convention).
	GrowDown Growth = iota
	// GrowUp pushes toward higher addresses.
	GrowUp
)

func (g Growth) String() string {
	if g == GrowUp {
		return "up"
	}
	return "down"
}

// MachineOptions configures a Machine.
type MachineOptions struct {
	StackSize int    // bytes, rounded up to the word size (0 = DefaultStackSize)
	Growth    Growth // push direction
}

// Machine is the reference execution context: a register file and a call
// stack, both living in the managed address space's view of the world. A
// host interpreter keeps its live heap addresses in registers and stack
// slots exactly as compiled code would, and the collector finds them there.
type Machine struct {
	sp     *vmem.Space
	stack  *vmem.Region
	growth Growth
	regs   [format.NumRegisters]uint64

	// top is the stack pointer: the next free slot when growing up, the
	// last pushed slot when growing down.
	top format.Addr
}

// NewMachine maps a stack into sp and returns a machine with an empty
// stack and zeroed registers.
func NewMachine(sp *vmem.Space, opts MachineOptions) (*Machine, error) {
	size := opts.StackSize
	if size <= 0 {
		size = format.DefaultStackSize
	}
	size = int(format.AlignWord(uint64(size)))

	r, err := sp.Map(size, vmem.KindStack)
	if err != nil {
		return nil, fmt.Errorf("scan: map machine stack: %w", err)
	}
	m := &Machine{sp: sp, stack: r, growth: opts.Growth}
	m.top = m.Base()
	return m, nil
}

// Base returns the stack baseline: the stack pointer of an empty stack.
func (m *Machine) Base() format.Addr {
	if m.growth == GrowUp {
		return m.stack.Base
	}
	return m.stack.End()
}

// Growth returns the push direction.
func (m *Machine) Growth() Growth {
	return m.growth
}

// Region returns the mapped stack region.
func (m *Machine) Region() *vmem.Region {
	return m.stack
}

// Push stores v in a new stack slot.
func (m *Machine) Push(v uint64) error {
	if m.growth == GrowUp {
		if m.top+format.WordSize > m.stack.End() {
			return ErrStackOverflow
		}
		if err := m.sp.PutWord(m.top, v); err != nil {
			return err
		}
		m.top += format.WordSize
		return nil
	}

	if m.top-format.WordSize < m.stack.Base {
		return ErrStackOverflow
	}
	m.top -= format.WordSize
	return m.sp.PutWord(m.top, v)
}

// Pop removes the most recently pushed slot and returns its value. The slot
// is cleared so a popped address no longer looks live to a scan of the
// whole stack region.
func (m *Machine) Pop() (uint64, error) {
	if m.Depth() == 0 {
		return 0, ErrStackUnderflow
	}
	slot := m.slot(0)
	v := m.sp.ReadWord(slot)
	m.sp.WriteWord(slot, 0)
	if m.growth == GrowUp {
		m.top -= format.WordSize
	} else {
		m.top += format.WordSize
	}
	return v, nil
}

// Peek returns the i-th slot from the top (0 = most recent).
func (m *Machine) Peek(i int) (uint64, error) {
	if i < 0 || i >= m.Depth() {
		return 0, fmt.Errorf("%w: peek %d of %d", ErrStackUnderflow, i, m.Depth())
	}
	return m.sp.ReadWord(m.slot(i)), nil
}

// Poke overwrites the i-th slot from the top.
func (m *Machine) Poke(i int, v uint64) error {
	if i < 0 || i >= m.Depth() {
		return fmt.Errorf("%w: poke %d of %d", ErrStackUnderflow, i, m.Depth())
	}
	return m.sp.PutWord(m.slot(i), v)
}

// slot returns the address of the i-th slot from the top.
func (m *Machine) slot(i int) format.Addr {
	off := format.Addr(i) * format.WordSize
	if m.growth == GrowUp {
		return m.top - format.WordSize - off
	}
	return m.top + off
}

// Depth returns the number of pushed slots.
func (m *Machine) Depth() int {
	if m.growth == GrowUp {
		return int(m.top-m.stack.Base) / format.WordSize
	}
	return int(m.stack.End()-m.top) / format.WordSize
}

// SetReg sets register i.
func (m *Machine) SetReg(i int, v uint64) error {
	if i < 0 || i >= len(m.regs) {
		return fmt.Errorf("%w: %d", ErrBadRegister, i)
	}
	m.regs[i] = v
	return nil
}

// Reg returns register i, or 0 for an invalid index.
func (m *Machine) Reg(i int) uint64 {
	if i < 0 || i >= len(m.regs) {
		return 0
	}
	return m.regs[i]
}

// ClearRegs zeroes the register file.
func (m *Machine) ClearRegs() {
	m.regs = [format.NumRegisters]uint64{}
}

// Reset empties the stack and clears every register.
func (m *Machine) Reset() {
	m.sp.Zero(m.stack.Base, m.stack.Size())
	m.top = m.Base()
	m.ClearRegs()
}

// CaptureRegisters implements Context.
func (m *Machine) CaptureRegisters(buf []uint64) int {
	return copy(buf, m.regs[:])
}

// StackPointer implements Context.
func (m *Machine) StackPointer() format.Addr {
	return m.top
}

var _ Context = (*Machine)(nil)
