package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeBasics(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.Elements())
	assert.Equal(t, 4, s.At(-1))
	assert.Equal(t, 2, s.At(0))
	assert.Equal(t, []int{12, 4, 1}, s.Strides())

	s2 := s.SetDim(-1, 9)
	assert.Equal(t, Shape{2, 3, 9}, s2)
	assert.Equal(t, Shape{2, 3, 4}, s, "SetDim must not mutate the receiver")

	s3 := s.Transpose(0, 1)
	assert.Equal(t, Shape{3, 2, 4}, s3)
	assert.True(t, s.Equal(Shape{2, 3, 4}))
	assert.False(t, s.Equal(Shape{2, 3, 5}))
}

func TestNewRejectsInvalidShape(t *testing.T) {
	_, err := New(F32)
	assert.ErrorIs(t, err, ErrInvalidShape)

	_, err = New(F32, 2, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidShape)
}

func TestCloneAllocatesFreshStorage(t *testing.T) {
	a, err := New(F32, 2, 2)
	require.NoError(t, err)
	av := a.Float32s()
	copy(av, []float32{1, 2, 3, 4})

	b, err := a.Clone()
	require.NoError(t, err)
	bv := b.Float32s()
	bv[0] = 99
	assert.Equal(t, float32(1), a.Float32s()[0], "clone must not alias the source buffer")
	assert.Equal(t, float32(99), bv[0])
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := New(F32, 2)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	assert.True(t, a.Closed())

	_, err = a.bytes()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestElementwiseOps(t *testing.T) {
	a, err := New(F32, 4)
	require.NoError(t, err)
	copy(a.Float32s(), []float32{1, -2, 3, -4})
	b, err := New(F32, 4)
	require.NoError(t, err)
	copy(b.Float32s(), []float32{10, 10, 10, 10})

	sum, err := New(F32, 4)
	require.NoError(t, err)
	require.NoError(t, Add(sum, a, b))
	assert.Equal(t, []float32{11, 8, 13, 6}, sum.Float32s())

	diff, err := New(F32, 4)
	require.NoError(t, err)
	require.NoError(t, Sub(diff, a, b))
	assert.Equal(t, []float32{-9, -12, -7, -14}, diff.Float32s())

	relu, err := New(F32, 4)
	require.NoError(t, err)
	require.NoError(t, ReLU(relu, a))
	assert.Equal(t, []float32{1, 0, 3, 0}, relu.Float32s())

	scaled, err := New(F32, 4)
	require.NoError(t, err)
	require.NoError(t, MulScalar(scaled, a, 2))
	assert.Equal(t, []float32{2, -4, 6, -8}, scaled.Float32s())
}

func TestSigmoidBounds(t *testing.T) {
	a, err := New(F32, 3)
	require.NoError(t, err)
	copy(a.Float32s(), []float32{-100, 0, 100})
	out, err := New(F32, 3)
	require.NoError(t, err)
	require.NoError(t, Sigmoid(out, a))
	ov := out.Float32s()
	assert.InDelta(t, 0, ov[0], 1e-6)
	assert.InDelta(t, 0.5, ov[1], 1e-6)
	assert.InDelta(t, 1, ov[2], 1e-6)
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	a, err := New(F32, 2, 3)
	require.NoError(t, err)
	copy(a.Float32s(), []float32{1, 2, 3, -1, 0, 1})
	out, err := New(F32, 2, 3)
	require.NoError(t, err)
	require.NoError(t, Softmax(out, a))

	ov := out.Float32s()
	for row := 0; row < 2; row++ {
		sum := float32(0)
		for col := 0; col < 3; col++ {
			v := ov[row*3+col]
			assert.GreaterOrEqual(t, v, float32(0))
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-5)
	}
}

func TestIndexSelectGathersRows(t *testing.T) {
	table, err := New(F32, 4, 2)
	require.NoError(t, err)
	copy(table.Float32s(), []float32{0, 0, 10, 11, 20, 21, 30, 31})

	out, err := New(F32, 3, 2)
	require.NoError(t, err)
	require.NoError(t, IndexSelect(out, table, []uint32{2, 0, 3}))
	assert.Equal(t, []float32{20, 21, 0, 0, 30, 31}, out.Float32s())
}

func TestLayerNormNormalizesEachRow(t *testing.T) {
	x, err := New(F32, 2, 4)
	require.NoError(t, err)
	copy(x.Float32s(), []float32{1, 2, 3, 4, -1, -2, -3, -4})

	gamma, err := New(F32, 4)
	require.NoError(t, err)
	for i := range gamma.Float32s() {
		gamma.Float32s()[i] = 1
	}
	beta, err := New(F32, 4)
	require.NoError(t, err)

	out, err := New(F32, 2, 4)
	require.NoError(t, err)
	require.NoError(t, LayerNorm(out, x, gamma, beta, 1e-9))

	ov := out.Float32s()
	for row := 0; row < 2; row++ {
		mean := float32(0)
		for col := 0; col < 4; col++ {
			mean += ov[row*4+col]
		}
		mean /= 4
		assert.InDelta(t, 0, mean, 1e-4)
	}
}

func TestBatchMatMulShapes(t *testing.T) {
	a, err := New(F32, 1, 2, 3)
	require.NoError(t, err)
	copy(a.Float32s(), []float32{1, 2, 3, 4, 5, 6})

	b, err := New(F32, 1, 3, 2)
	require.NoError(t, err)
	copy(b.Float32s(), []float32{1, 0, 0, 1, 1, 1})

	out, err := New(F32, 1, 2, 2)
	require.NoError(t, err)
	require.NoError(t, BatchMatMul(out, a, b))
	// row0 = [1,2,3]·cols -> [1*1+2*0+3*1, 1*0+2*1+3*1] = [4,5]
	// row1 = [4,5,6]·cols -> [4+6, 5+6]               = [10,11]
	assert.Equal(t, []float32{4, 5, 10, 11}, out.Float32s())
}

func TestHighwayBlendsBySigmoidGate(t *testing.T) {
	x, err := New(F32, 2)
	require.NoError(t, err)
	copy(x.Float32s(), []float32{1, 1})
	y, err := New(F32, 2)
	require.NoError(t, err)
	copy(y.Float32s(), []float32{5, 5})
	g, err := New(F32, 2)
	require.NoError(t, err)
	copy(g.Float32s(), []float32{100, -100}) // sigmoid ~1 and ~0

	out, err := New(F32, 2)
	require.NoError(t, err)
	require.NoError(t, Highway(out, x, y, g))
	ov := out.Float32s()
	assert.InDelta(t, 1, ov[0], 1e-3) // gate~1 picks x
	assert.InDelta(t, 5, ov[1], 1e-3) // gate~0 picks y
}

func TestSinusoidalSignalIsDeterministic(t *testing.T) {
	out, err := New(F32, 2, 4)
	require.NoError(t, err)
	require.NoError(t, SinusoidalSignal(out, 0, 2, 4))

	out2, err := New(F32, 2, 4)
	require.NoError(t, err)
	require.NoError(t, SinusoidalSignal(out2, 0, 2, 4))
	assert.Equal(t, out.Float32s(), out2.Float32s())

	// position 0 is a fixed point of sin(0)=0, cos(0)=1 per half: with
	// H=4 the sin half is indices 0-1 and the cos half starts at index 2.
	ov := out.Float32s()
	assert.InDelta(t, 0, ov[0], 1e-6)
	assert.InDelta(t, 1, ov[2], 1e-6)
}

func TestTransposeRoundTrips(t *testing.T) {
	a, err := New(F32, 2, 3)
	require.NoError(t, err)
	copy(a.Float32s(), []float32{1, 2, 3, 4, 5, 6})

	out, err := New(F32, 3, 2)
	require.NoError(t, err)
	require.NoError(t, Transpose10(out, a))
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.Float32s())

	back, err := New(F32, 2, 3)
	require.NoError(t, err)
	require.NoError(t, Transpose10(back, out))
	assert.Equal(t, a.Float32s(), back.Float32s())
}

func TestPreparedTensorRawRoundTrip(t *testing.T) {
	p, err := NewPrepared(2, 2)
	require.NoError(t, err)
	require.NoError(t, p.WriteIG8([]int8{1, -2, 3, -4}, 7.5))

	raw, bQuant, err := p.RawIG8()
	require.NoError(t, err)
	assert.Equal(t, []int8{1, -2, 3, -4}, raw)
	assert.InDelta(t, 7.5, bQuant, 1e-5)
}
