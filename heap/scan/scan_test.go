package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
	"github.com/joshuapare/gckit/internal/vmem"
)

func newTestSpace(t *testing.T) *vmem.Space {
	t.Helper()
	sp := vmem.New(0)
	t.Cleanup(func() { _ = sp.Close() })
	return sp
}

func newTestMachine(t *testing.T, growth Growth) *Machine {
	t.Helper()
	m, err := NewMachine(newTestSpace(t), MachineOptions{StackSize: 256, Growth: growth})
	require.NoError(t, err)
	return m
}

// stackWords scans the live part of the machine stack.
func stackWords(m *Machine, baseline format.Addr) []uint64 {
	var out []uint64
	lo, hi := StackRange(baseline, m.StackPointer())
	Words(m.sp, lo, hi, func(_ format.Addr, w uint64) { out = append(out, w) })
	return out
}

func TestStackRange(t *testing.T) {
	lo, hi := StackRange(0x2000, 0x1000)
	assert.Equal(t, format.Addr(0x1000), lo)
	assert.Equal(t, format.Addr(0x2000), hi)

	lo, hi = StackRange(0x1000, 0x2000)
	assert.Equal(t, format.Addr(0x1000), lo)
	assert.Equal(t, format.Addr(0x2000), hi)

	lo, hi = StackRange(0x1000, 0x1000)
	assert.Equal(t, lo, hi)
}

func TestMachine_PushPop(t *testing.T) {
	for _, growth := range []Growth{GrowDown, GrowUp} {
		t.Run(growth.String(), func(t *testing.T) {
			m := newTestMachine(t, growth)
			base := m.StackPointer()
			require.Equal(t, m.Base(), base)
			require.Zero(t, m.Depth())

			require.NoError(t, m.Push(1))
			require.NoError(t, m.Push(2))
			require.NoError(t, m.Push(3))
			require.Equal(t, 3, m.Depth())

			if growth == GrowDown {
				require.Less(t, m.StackPointer(), base)
			} else {
				require.Greater(t, m.StackPointer(), base)
			}

			v, err := m.Peek(0)
			require.NoError(t, err)
			require.Equal(t, uint64(3), v)
			v, err = m.Peek(2)
			require.NoError(t, err)
			require.Equal(t, uint64(1), v)

			require.NoError(t, m.Poke(1, 20))
			require.ElementsMatch(t, []uint64{1, 20, 3}, stackWords(m, base))

			v, err = m.Pop()
			require.NoError(t, err)
			require.Equal(t, uint64(3), v)
			require.ElementsMatch(t, []uint64{1, 20}, stackWords(m, base))

			_, err = m.Peek(2)
			require.ErrorIs(t, err, ErrStackUnderflow)
		})
	}
}

func TestMachine_PopClearsSlot(t *testing.T) {
	m := newTestMachine(t, GrowDown)
	require.NoError(t, m.Push(0xDEAD0))
	slot := m.StackPointer()

	_, err := m.Pop()
	require.NoError(t, err)
	require.Zero(t, m.sp.ReadWord(slot))

	_, err = m.Pop()
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestMachine_Overflow(t *testing.T) {
	for _, growth := range []Growth{GrowDown, GrowUp} {
		t.Run(growth.String(), func(t *testing.T) {
			m := newTestMachine(t, growth)
			for i := range 256 / format.WordSize {
				require.NoError(t, m.Push(uint64(i)))
			}
			require.ErrorIs(t, m.Push(99), ErrStackOverflow)
			require.Equal(t, 256/format.WordSize, m.Depth())
		})
	}
}

func TestMachine_Registers(t *testing.T) {
	m := newTestMachine(t, GrowDown)

	require.NoError(t, m.SetReg(0, 0x10))
	require.NoError(t, m.SetReg(format.NumRegisters-1, 0x20))
	require.ErrorIs(t, m.SetReg(format.NumRegisters, 1), ErrBadRegister)
	require.ErrorIs(t, m.SetReg(-1, 1), ErrBadRegister)
	require.Zero(t, m.Reg(format.NumRegisters))

	buf := make([]uint64, format.MaxContextWords)
	n := m.CaptureRegisters(buf)
	require.Equal(t, format.NumRegisters, n)
	require.Equal(t, uint64(0x10), buf[0])
	require.Equal(t, uint64(0x20), buf[n-1])

	m.ClearRegs()
	n = m.CaptureRegisters(buf)
	for _, w := range buf[:n] {
		require.Zero(t, w)
	}
}

func TestMachine_Reset(t *testing.T) {
	m := newTestMachine(t, GrowUp)
	require.NoError(t, m.Push(7))
	require.NoError(t, m.SetReg(3, 9))

	m.Reset()
	require.Zero(t, m.Depth())
	require.Equal(t, m.Base(), m.StackPointer())
	require.Zero(t, m.Reg(3))
	require.Zero(t, m.sp.ReadWord(m.Region().Base))
}

func TestWords_AlignmentAndBounds(t *testing.T) {
	sp := newTestSpace(t)
	r, err := sp.Map(64, vmem.KindStatic)
	require.NoError(t, err)
	for i := range format.Addr(8) {
		require.NoError(t, sp.PutWord(r.Base+i*8, uint64(i)))
	}

	var got []format.Addr
	Words(sp, r.Base+3, r.Base+36, func(at format.Addr, w uint64) {
		require.Equal(t, uint64(at-r.Base)/8, w)
		got = append(got, at)
	})
	// 3 rounds up to 8; the partial word at 32..40 is skipped.
	require.Equal(t, []format.Addr{r.Base + 8, r.Base + 16, r.Base + 24}, got)

	require.Zero(t, Count(sp, r.Base, r.Base))
	require.Equal(t, 8, Count(sp, r.Base, r.End()))
}

func TestWords_SkipsUnmappedGaps(t *testing.T) {
	sp := newTestSpace(t)
	r1, err := sp.Map(16, vmem.KindStatic)
	require.NoError(t, err)
	r2, err := sp.Map(24, vmem.KindStatic)
	require.NoError(t, err)

	require.Equal(t, 5, Count(sp, 0, r2.End()+format.RegionAlignment))
	require.Equal(t, 3, Count(sp, r1.End(), r2.End()))
	require.Zero(t, Count(sp, r1.End(), r2.Base))
	require.Zero(t, Count(sp, 0, format.SpaceBase))
}

func TestWords_StartNearTopOfAddressSpace(t *testing.T) {
	sp := newTestSpace(t)
	_, err := sp.Map(64, vmem.KindStatic)
	require.NoError(t, err)

	top := ^format.Addr(0)
	for _, start := range []format.Addr{top, top - 3, top - 6} {
		assert.Zero(t, Count(sp, start, top), "start 0x%x", uint64(start))
	}
}
