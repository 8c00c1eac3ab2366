package layers

import (
	"testing"

	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvParam_OutputSize(t *testing.T) {
	tests := []struct {
		name         string
		param        ConvParam
		H, W, HH, WW int
		wantH, wantW int
		wantErr      bool
	}{
		{"same padding", ConvParam{Stride: 1, Pad: 1}, 4, 4, 3, 3, 4, 4, false},
		{"stride two", ConvParam{Stride: 2, Pad: 1}, 4, 4, 4, 4, 2, 2, false},
		{"valid", ConvParam{Stride: 1, Pad: 0}, 5, 7, 3, 3, 3, 5, false},
		{"one by one", ConvParam{Stride: 1, Pad: 0}, 3, 3, 1, 1, 3, 3, false},
		{"zero stride", ConvParam{Stride: 0, Pad: 0}, 4, 4, 3, 3, 0, 0, true},
		{"negative pad", ConvParam{Stride: 1, Pad: -1}, 4, 4, 3, 3, 0, 0, true},
		{"filter too large", ConvParam{Stride: 1, Pad: 0}, 2, 2, 3, 3, 0, 0, true},
		{"uneven tiling", ConvParam{Stride: 2, Pad: 0}, 4, 4, 3, 3, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, w, err := tt.param.OutputSize(tt.H, tt.W, tt.HH, tt.WW)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantH, h)
			assert.Equal(t, tt.wantW, w)
		})
	}
}

func TestConvForwardNaive_OnesFilter(t *testing.T) {
	// With an all-ones 3x3 filter, stride 1 and pad 1, each output is the sum
	// of the 3x3 neighbourhood over all channels, plus the bias.
	x := tensor.Ones(tensor.Shape{2, 3, 4, 4})
	w := tensor.Ones(tensor.Shape{2, 3, 3, 3})
	b := mustFromSlice(t, []float64{0, 1}, 2)

	out, cache, err := ConvForwardNaive(x, w, b, ConvParam{Stride: 1, Pad: 1})
	require.NoError(t, err)
	require.NotNil(t, cache)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 2, 4, 4}))

	// Neighbourhood sizes inside a zero-padded 4x4 plane.
	counts := [4][4]float64{
		{4, 6, 6, 4},
		{6, 9, 9, 6},
		{6, 9, 9, 6},
		{4, 6, 6, 4},
	}
	for n := 0; n < 2; n++ {
		for f := 0; f < 2; f++ {
			for i := 0; i < 4; i++ {
				for j := 0; j < 4; j++ {
					want := 3*counts[i][j] + b.At(f)
					assert.Equal(t, want, out.At(n, f, i, j), "out[%d,%d,%d,%d]", n, f, i, j)
				}
			}
		}
	}
}

func TestConvForwardNaive_Values(t *testing.T) {
	x := tensor.Linspace(tensor.Shape{2, 3, 4, 4}, -0.1, 0.5)
	w := tensor.Linspace(tensor.Shape{3, 3, 4, 4}, -0.2, 0.3)
	b := tensor.Linspace(tensor.Shape{3}, -0.1, 0.2)

	out, _, err := ConvForwardNaive(x, w, b, ConvParam{Stride: 2, Pad: 1})
	require.NoError(t, err)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 3, 2, 2}))

	xPad, err := x.Pad2D(1)
	require.NoError(t, err)
	for n := 0; n < 2; n++ {
		for f := 0; f < 3; f++ {
			for i := 0; i < 2; i++ {
				for j := 0; j < 2; j++ {
					want := b.At(f)
					for c := 0; c < 3; c++ {
						for kh := 0; kh < 4; kh++ {
							for kw := 0; kw < 4; kw++ {
								want += xPad.At(n, c, 2*i+kh, 2*j+kw) * w.At(f, c, kh, kw)
							}
						}
					}
					assert.InDelta(t, want, out.At(n, f, i, j), 1e-12)
				}
			}
		}
	}
}

func TestConvForwardNaive_OneByOneMatchesAffine(t *testing.T) {
	src := newSource(40)
	x := randn(src, 2, 3, 2, 2)
	w := randn(src, 4, 3, 1, 1)
	b := randn(src, 4)

	out, _, err := ConvForwardNaive(x, w, b, ConvParam{Stride: 1, Pad: 0})
	require.NoError(t, err)

	// A 1x1 conv is an affine map over channels at every pixel.
	pixels, err := x.Transpose(0, 2, 3, 1)
	require.NoError(t, err)
	pixels, err = pixels.Reshape(tensor.Shape{-1, 3})
	require.NoError(t, err)
	wMat, err := w.Reshape(tensor.Shape{4, 3})
	require.NoError(t, err)
	wMat, err = wMat.Transpose()
	require.NoError(t, err)

	flat, _, err := AffineForward(pixels, wMat, b)
	require.NoError(t, err)
	flat, err = flat.Reshape(tensor.Shape{2, 2, 2, 4})
	require.NoError(t, err)
	want, err := flat.Transpose(0, 3, 1, 2)
	require.NoError(t, err)

	assert.True(t, want.AllClose(out, 1e-12, 1e-12))
}

func TestConvForwardNaive_Errors(t *testing.T) {
	x := tensor.Zeros(tensor.Shape{1, 3, 4, 4})
	w := tensor.Zeros(tensor.Shape{2, 3, 3, 3})
	b := tensor.Zeros(tensor.Shape{2})

	tests := []struct {
		name    string
		x, w, b *tensor.Tensor
		param   ConvParam
		wantErr error
	}{
		{"x rank", tensor.Zeros(tensor.Shape{3, 4, 4}), w, b, ConvParam{Stride: 1, Pad: 1}, ErrShapeMismatch},
		{"w rank", x, tensor.Zeros(tensor.Shape{2, 3, 3}), b, ConvParam{Stride: 1, Pad: 1}, ErrShapeMismatch},
		{"channels", x, tensor.Zeros(tensor.Shape{2, 2, 3, 3}), b, ConvParam{Stride: 1, Pad: 1}, ErrShapeMismatch},
		{"bias", x, w, tensor.Zeros(tensor.Shape{3}), ConvParam{Stride: 1, Pad: 1}, ErrShapeMismatch},
		{"uneven stride", x, w, b, ConvParam{Stride: 2, Pad: 0}, ErrInvalidConfig},
		{"zero stride", x, w, b, ConvParam{}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ConvForwardNaive(tt.x, tt.w, tt.b, tt.param)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConvBackwardNaive_NumericalGradient(t *testing.T) {
	tests := []struct {
		name   string
		xShape []int
		wShape []int
		param  ConvParam
	}{
		{"stride 1 pad 1", []int{2, 3, 5, 5}, []int{2, 3, 3, 3}, ConvParam{Stride: 1, Pad: 1}},
		{"stride 2 pad 1", []int{2, 3, 5, 5}, []int{2, 3, 3, 3}, ConvParam{Stride: 2, Pad: 1}},
		{"stride 1 no pad", []int{1, 2, 4, 5}, []int{3, 2, 2, 3}, ConvParam{Stride: 1, Pad: 0}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newSource(uint64(41 + i))
			x := randn(src, tt.xShape...)
			w := randn(src, tt.wShape...)
			b := randn(src, tt.wShape[0])

			out, cache, err := ConvForwardNaive(x, w, b, tt.param)
			require.NoError(t, err)
			dout := randn(src, out.Shape()...)

			dx, dw, db, err := ConvBackwardNaive(dout, cache)
			require.NoError(t, err)
			require.True(t, dx.Shape().Equal(x.Shape()))
			require.True(t, dw.Shape().Equal(w.Shape()))

			forward := func() *tensor.Tensor {
				out, _, err := ConvForwardNaive(x, w, b, tt.param)
				require.NoError(t, err)
				return out
			}
			assertGradClose(t, "dx", gradcheck.NumericalGradientArray(forward, x, dout, 0), dx, linearTol)
			assertGradClose(t, "dw", gradcheck.NumericalGradientArray(forward, w, dout, 0), dw, linearTol)
			assertGradClose(t, "db", gradcheck.NumericalGradientArray(forward, b, dout, 0), db, linearTol)
		})
	}
}

func TestConvBackwardNaive_Errors(t *testing.T) {
	_, _, _, err := ConvBackwardNaive(tensor.Zeros(tensor.Shape{1, 1, 1, 1}), nil)
	assert.ErrorIs(t, err, ErrInvalidCache)

	x := tensor.Zeros(tensor.Shape{1, 1, 3, 3})
	w := tensor.Zeros(tensor.Shape{1, 1, 3, 3})
	b := tensor.Zeros(tensor.Shape{1})
	_, cache, err := ConvForwardNaive(x, w, b, ConvParam{Stride: 1, Pad: 1})
	require.NoError(t, err)
	_, _, _, err = ConvBackwardNaive(tensor.Zeros(tensor.Shape{1, 1, 1, 1}), cache)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
