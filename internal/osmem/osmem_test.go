package osmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireZeroFilled(t *testing.T) {
	data, cleanup, err := Acquire(64 * 1024)
	require.NoError(t, err)
	defer func() { require.NoError(t, cleanup()) }()

	require.Len(t, data, 64*1024)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zero: 0x%x", i, b)
		}
	}

	// Memory must be writable.
	data[0] = 0xAA
	data[len(data)-1] = 0xBB
	require.Equal(t, byte(0xAA), data[0])
	require.Equal(t, byte(0xBB), data[len(data)-1])
}

func TestAcquireDoubleCleanup(t *testing.T) {
	_, cleanup, err := Acquire(4096)
	require.NoError(t, err)
	require.NoError(t, cleanup())
	require.NoError(t, cleanup(), "second cleanup must be a no-op")
}

func TestAcquireBadSize(t *testing.T) {
	_, _, err := Acquire(0)
	require.ErrorIs(t, err, ErrBadSize)

	_, _, err = Acquire(-1)
	require.ErrorIs(t, err, ErrBadSize)
}
