package layers

import (
	"testing"

	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReLUForward_NoNegatives(t *testing.T) {
	x := tensor.Linspace(tensor.Shape{3, 4}, -0.5, 0.5)

	out, cache := ReLUForward(x)
	require.NotNil(t, cache)
	require.True(t, out.Shape().Equal(x.Shape()))

	for i, v := range x.Data() {
		assert.GreaterOrEqual(t, out.Data()[i], 0.0)
		if v > 0 {
			assert.Equal(t, v, out.Data()[i])
		} else {
			assert.Zero(t, out.Data()[i])
		}
	}
}

func TestReLUBackward_ZeroAtAndBelowZero(t *testing.T) {
	x := mustFromSlice(t, []float64{-2, -0.5, 0, 0.5, 2, 0}, 2, 3)
	dout := mustFromSlice(t, []float64{1, 2, 3, 4, 5, 6}, 2, 3)

	_, cache := ReLUForward(x)
	dx, err := ReLUBackward(dout, cache)
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0, 4, 5, 0}, dx.Data())
}

func TestReLUBackward_NumericalGradient(t *testing.T) {
	src := newSource(2)
	x := randn(src, 10, 10)
	dout := randn(src, 10, 10)

	_, cache := ReLUForward(x)
	dx, err := ReLUBackward(dout, cache)
	require.NoError(t, err)

	numeric := gradcheck.NumericalGradientArray(func() *tensor.Tensor {
		out, _ := ReLUForward(x)
		return out
	}, x, dout, 0)
	assertGradClose(t, "dx", numeric, dx, linearTol)
}

func TestReLUBackward_Errors(t *testing.T) {
	_, err := ReLUBackward(tensor.Zeros(tensor.Shape{2}), nil)
	assert.ErrorIs(t, err, ErrInvalidCache)

	_, cache := ReLUForward(tensor.Zeros(tensor.Shape{2, 2}))
	_, err = ReLUBackward(tensor.Zeros(tensor.Shape{4}), cache)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
