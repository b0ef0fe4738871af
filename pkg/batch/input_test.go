package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrefillsPad(t *testing.T) {
	in, err := New(2, 4, 9, 2.0)
	require.NoError(t, err)
	assert.Equal(t, []uint32{9, 9, 9, 9, 9, 9, 9, 9}, in.Indices.Uint32s())
	assert.Equal(t, 0, in.Occupied())
	assert.Zero(t, in.Occupancy())
}

func TestAddSetsRowAndMask(t *testing.T) {
	in, err := New(2, 4, 9, 2.0)
	require.NoError(t, err)
	require.NoError(t, in.Add([]uint32{1, 2, 3}))

	assert.Equal(t, 1, in.Occupied())
	iv := in.Indices.Uint32s()
	mv := in.Mask.Float32s()
	assert.Equal(t, []uint32{1, 2, 3, 9}, iv[0:4])
	assert.Equal(t, []float32{1, 1, 1, 0}, mv[0:4])

	require.NoError(t, in.Add([]uint32{5, 6}))
	assert.InDelta(t, 5.0/8.0, in.Occupancy(), 1e-9)
}

func TestAddRejectsOverfullOrOverlong(t *testing.T) {
	in, err := New(1, 2, 0, 1.0)
	require.NoError(t, err)
	assert.ErrorIs(t, in.Add([]uint32{1, 2, 3}), ErrTooLong)

	require.NoError(t, in.Add([]uint32{1}))
	assert.ErrorIs(t, in.Add([]uint32{1}), ErrFull)
}
