package layers

import (
	"testing"

	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDropoutForward_InvertedScaling(t *testing.T) {
	x := tensor.Full(tensor.Shape{500, 500}, 10)

	for _, p := range []float64{0.25, 0.4, 0.7} {
		param := DropoutParam{P: p, Mode: Train}.WithSeed(123)
		out, cache, err := DropoutForward(x, param)
		require.NoError(t, err)
		require.NotNil(t, cache.Mask())

		zeros := 0
		for _, v := range out.Data() {
			if v == 0 {
				zeros++
				continue
			}
			assert.InDelta(t, 10/(1-p), v, 1e-12)
		}
		frac := float64(zeros) / float64(out.NumElements())
		assert.InDelta(t, p, frac, 0.01, "p=%g", p)
		assert.InDelta(t, 10, out.Sum()/float64(out.NumElements()), 0.2, "p=%g mean", p)
	}
}

func TestDropoutForward_ZeroPIsIdentity(t *testing.T) {
	src := newSource(30)
	x := randn(src, 20, 30)

	out, _, err := DropoutForward(x, DropoutParam{P: 0, Mode: Train})
	require.NoError(t, err)
	assert.Equal(t, x.Data(), out.Data())
}

func TestDropoutForward_SeedIsDeterministic(t *testing.T) {
	src := newSource(31)
	x := randn(src, 10, 10)
	param := DropoutParam{P: 0.5, Mode: Train}.WithSeed(7)

	a, _, err := DropoutForward(x, param)
	require.NoError(t, err)
	b, _, err := DropoutForward(x, param)
	require.NoError(t, err)
	assert.Equal(t, a.Data(), b.Data())

	c, _, err := DropoutForward(x, param.WithSeed(8))
	require.NoError(t, err)
	assert.NotEqual(t, a.Data(), c.Data())
}

func TestDropoutForward_TestModeIsIdentity(t *testing.T) {
	src := newSource(32)
	x := randn(src, 5, 5)

	out, cache, err := DropoutForward(x, DropoutParam{P: 0.9, Mode: Test})
	require.NoError(t, err)
	assert.Nil(t, cache.Mask())
	assert.Equal(t, x.Data(), out.Data())

	dout := randn(src, 5, 5)
	dx, err := DropoutBackward(dout, cache)
	require.NoError(t, err)
	assert.Equal(t, dout.Data(), dx.Data())
}

func TestDropoutForward_Errors(t *testing.T) {
	x := tensor.Ones(tensor.Shape{2, 2})

	tests := []struct {
		name    string
		param   DropoutParam
		wantErr error
	}{
		{"zero mode", DropoutParam{P: 0.5}, ErrInvalidMode},
		{"unknown mode", DropoutParam{P: 0.5, Mode: Mode(3)}, ErrInvalidMode},
		{"p is one", DropoutParam{P: 1, Mode: Train}, ErrInvalidConfig},
		{"negative p", DropoutParam{P: -0.1, Mode: Train}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DropoutForward(x, tt.param)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDropoutBackward_NumericalGradient(t *testing.T) {
	src := newSource(33)
	x := scaled(randn(src, 10, 10), 1, 10)
	dout := randn(src, 10, 10)
	param := DropoutParam{P: 0.2, Mode: Train}.WithSeed(123)

	_, cache, err := DropoutForward(x, param)
	require.NoError(t, err)
	dx, err := DropoutBackward(dout, cache)
	require.NoError(t, err)

	numeric := gradcheck.NumericalGradientArray(func() *tensor.Tensor {
		out, _, err := DropoutForward(x, param)
		require.NoError(t, err)
		return out
	}, x, dout, 0)
	assertGradClose(t, "dx", numeric, dx, linearTol)
}

func TestDropoutBackward_MatchesMask(t *testing.T) {
	x := tensor.Ones(tensor.Shape{4, 6})
	dout := tensor.Full(tensor.Shape{4, 6}, 2)
	param := DropoutParam{P: 0.5, Mode: Train}.WithSeed(1)

	_, cache, err := DropoutForward(x, param)
	require.NoError(t, err)
	dx, err := DropoutBackward(dout, cache)
	require.NoError(t, err)

	for i, m := range cache.Mask().Data() {
		assert.Equal(t, 4*m, dx.Data()[i])
	}
}

func TestDropoutBackward_Errors(t *testing.T) {
	_, err := DropoutBackward(tensor.Ones(tensor.Shape{2}), nil)
	assert.ErrorIs(t, err, ErrInvalidCache)

	_, cache, err := DropoutForward(tensor.Ones(tensor.Shape{2, 2}), DropoutParam{P: 0.5, Mode: Train})
	require.NoError(t, err)
	_, err = DropoutBackward(tensor.Ones(tensor.Shape{4}), cache)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
