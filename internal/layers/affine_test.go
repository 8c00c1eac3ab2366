package layers

import (
	"testing"

	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineForward_Values(t *testing.T) {
	// x: [2, 4, 5, 6] flattens to [2, 120].
	x := tensor.Linspace(tensor.Shape{2, 4, 5, 6}, -0.1, 0.5)
	w := tensor.Linspace(tensor.Shape{120, 3}, -0.2, 0.3)
	b := tensor.Linspace(tensor.Shape{3}, -0.3, 0.1)

	out, cache, err := AffineForward(x, w, b)
	require.NoError(t, err)
	require.NotNil(t, cache)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 3}))

	xd, wd, bd := x.Data(), w.Data(), b.Data()
	for n := 0; n < 2; n++ {
		for m := 0; m < 3; m++ {
			want := bd[m]
			for d := 0; d < 120; d++ {
				want += xd[n*120+d] * wd[d*3+m]
			}
			assert.InDelta(t, want, out.At(n, m), 1e-12, "out[%d,%d]", n, m)
		}
	}
}

func TestAffineForward_ShapeMismatch(t *testing.T) {
	x := tensor.Zeros(tensor.Shape{2, 3, 2})

	tests := []struct {
		name string
		w, b *tensor.Tensor
	}{
		{"rows", tensor.Zeros(tensor.Shape{5, 4}), tensor.Zeros(tensor.Shape{4})},
		{"bias", tensor.Zeros(tensor.Shape{6, 4}), tensor.Zeros(tensor.Shape{3})},
		{"rank", tensor.Zeros(tensor.Shape{6}), tensor.Zeros(tensor.Shape{4})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := AffineForward(x, tt.w, tt.b)
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestAffineBackward_NumericalGradient(t *testing.T) {
	src := newSource(1)
	x := randn(src, 10, 2, 3)
	w := randn(src, 6, 5)
	b := randn(src, 5)
	dout := randn(src, 10, 5)

	_, cache, err := AffineForward(x, w, b)
	require.NoError(t, err)
	dx, dw, db, err := AffineBackward(dout, cache)
	require.NoError(t, err)
	require.True(t, dx.Shape().Equal(x.Shape()))

	forward := func() *tensor.Tensor {
		out, _, err := AffineForward(x, w, b)
		require.NoError(t, err)
		return out
	}

	assertGradClose(t, "dx", gradcheck.NumericalGradientArray(forward, x, dout, 0), dx, linearTol)
	assertGradClose(t, "dw", gradcheck.NumericalGradientArray(forward, w, dout, 0), dw, linearTol)
	assertGradClose(t, "db", gradcheck.NumericalGradientArray(forward, b, dout, 0), db, linearTol)
}

func TestAffineBackward_Errors(t *testing.T) {
	_, _, _, err := AffineBackward(tensor.Zeros(tensor.Shape{2, 2}), nil)
	assert.ErrorIs(t, err, ErrInvalidCache)

	x := tensor.Zeros(tensor.Shape{2, 3})
	w := tensor.Zeros(tensor.Shape{3, 4})
	b := tensor.Zeros(tensor.Shape{4})
	_, cache, err := AffineForward(x, w, b)
	require.NoError(t, err)

	_, _, _, err = AffineBackward(tensor.Zeros(tensor.Shape{2, 3}), cache)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
