package roots

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/gckit/internal/format"
)

func TestRegistry_NormalizesOrder(t *testing.T) {
	r := NewRegistry(0, nil)

	require.NoError(t, r.Add(0x20000, 0x20100))
	require.NoError(t, r.Add(0x30100, 0x30000))

	require.Equal(t, []Range{
		{Start: 0x20000, End: 0x20100},
		{Start: 0x30000, End: 0x30100},
	}, r.Ranges())
	require.Equal(t, uint64(0x100), r.Ranges()[1].Len())
	require.Equal(t, format.RootLimit, r.Limit())
}

func TestRegistry_EmptyRange(t *testing.T) {
	r := NewRegistry(0, nil)
	require.NoError(t, r.Add(0x20000, 0x20000))
	require.Equal(t, 1, r.Len())
	require.Zero(t, r.Ranges()[0].Len())
}

func TestRegistry_OverflowIsFatal(t *testing.T) {
	var fatal error
	r := NewRegistry(2, func(err error) { fatal = err })

	require.NoError(t, r.Add(0x20000, 0x20008))
	require.NoError(t, r.Add(0x20008, 0x20010))
	require.Nil(t, fatal)

	err := r.Add(0x20010, 0x20018)
	require.ErrorIs(t, err, ErrRootOverflow)
	require.ErrorIs(t, fatal, ErrRootOverflow)
	require.Equal(t, 2, r.Len(), "overflowing range must not be recorded")
}

func TestRegistry_DefaultFatalPanics(t *testing.T) {
	r := NewRegistry(1, nil)
	require.NoError(t, r.Add(0x20000, 0x20008))
	require.Panics(t, func() { _ = r.Add(0x20008, 0x20010) })
}
