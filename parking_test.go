package stackrt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParkingTable_ParkUnpark(t *testing.T) {
	pt := newParkingTable(4)
	assert.True(t, pt.IsEmpty())

	h := newHandle()
	token, err := pt.Park(h, 5)
	require.NoError(t, err)
	assert.False(t, pt.IsEmpty())
	assert.Equal(t, 1, pt.Len())

	entry, ok := pt.Unpark(token)
	require.True(t, ok)
	assert.Same(t, h, entry.handle)
	assert.Equal(t, 5, entry.fd)
	assert.True(t, pt.IsEmpty())

	_, ok = pt.Unpark(token)
	assert.False(t, ok)
}

func TestParkingTable_CapacityExceeded(t *testing.T) {
	pt := newParkingTable(2)

	_, err := pt.Park(newHandle(), 1)
	require.NoError(t, err)
	_, err = pt.Park(newHandle(), 2)
	require.NoError(t, err)

	_, err = pt.Park(newHandle(), 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
}

func TestParkingTable_TokenReuse(t *testing.T) {
	pt := newParkingTable(1)

	token1, err := pt.Park(newHandle(), 1)
	require.NoError(t, err)

	_, ok := pt.Unpark(token1)
	require.True(t, ok)

	token2, err := pt.Park(newHandle(), 2)
	require.NoError(t, err)
	assert.Equal(t, token1, token2)
}
