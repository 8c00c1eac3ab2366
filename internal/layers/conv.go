package layers

import (
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/pkg/errors"
)

// ConvParam configures a 2D convolution. Padding is symmetric zero padding
// on the height and width axes.
type ConvParam struct {
	Stride int `yaml:"stride"`
	Pad    int `yaml:"pad"`
}

// OutputSize returns the output height and width for an H×W input and an
// HH×WW filter:
//
//	H' = 1 + (H + 2*pad - HH) / stride
//	W' = 1 + (W + 2*pad - WW) / stride
//
// Windows must tile the padded input exactly; any remainder is rejected with
// ErrInvalidConfig rather than truncated.
func (p ConvParam) OutputSize(H, W, HH, WW int) (int, int, error) {
	const op = "conv"

	if p.Stride <= 0 {
		return 0, 0, configError(op, "stride must be positive, got %d", p.Stride)
	}
	if p.Pad < 0 {
		return 0, 0, configError(op, "pad must be non-negative, got %d", p.Pad)
	}
	spanH := H + 2*p.Pad - HH
	spanW := W + 2*p.Pad - WW
	if spanH < 0 || spanW < 0 {
		return 0, 0, configError(op, "%dx%d filter larger than padded %dx%d input", HH, WW, H+2*p.Pad, W+2*p.Pad)
	}
	if spanH%p.Stride != 0 || spanW%p.Stride != 0 {
		return 0, 0, configError(op, "stride %d does not evenly tile %dx%d input (pad %d, filter %dx%d)",
			p.Stride, H, W, p.Pad, HH, WW)
	}
	return 1 + spanH/p.Stride, 1 + spanW/p.Stride, nil
}

// ConvCache holds the forward inputs needed by ConvBackwardNaive.
type ConvCache struct {
	x     *tensor.Tensor
	w     *tensor.Tensor
	b     *tensor.Tensor
	param ConvParam
}

// ConvForwardNaive computes a 2D convolution with a direct sliding window.
//
// Shapes:
//   - x: [N, C, H, W]
//   - w: [F, C, HH, WW]
//   - b: [F]
//   - out: [N, F, H', W']
//
// Every output element is the sum of the padded receptive field multiplied
// elementwise with filter f, plus b[f].
func ConvForwardNaive(x, w, b *tensor.Tensor, param ConvParam) (*tensor.Tensor, *ConvCache, error) {
	const op = "conv forward"

	if x.Rank() != 4 {
		return nil, nil, shapeError(op, "x must be 4D [N,C,H,W], got %v", x.Shape())
	}
	if w.Rank() != 4 {
		return nil, nil, shapeError(op, "w must be 4D [F,C,HH,WW], got %v", w.Shape())
	}
	N, C, H, W := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	F, CW, HH, WW := w.Dim(0), w.Dim(1), w.Dim(2), w.Dim(3)
	if C != CW {
		return nil, nil, shapeError(op, "input channels %d != filter channels %d", C, CW)
	}
	if err := checkVector(op, "b", b, F); err != nil {
		return nil, nil, err
	}

	HOut, WOut, err := param.OutputSize(H, W, HH, WW)
	if err != nil {
		return nil, nil, err
	}

	xPad, err := x.Pad2D(param.Pad)
	if err != nil {
		return nil, nil, errors.Wrap(err, op)
	}
	HP, WP := xPad.Dim(2), xPad.Dim(3)
	s := param.Stride

	out := tensor.Zeros(tensor.Shape{N, F, HOut, WOut})
	od, xp, wd, bd := out.Data(), xPad.Data(), w.Data(), b.Data()

	for n := 0; n < N; n++ {
		for f := 0; f < F; f++ {
			for i := 0; i < HOut; i++ {
				for j := 0; j < WOut; j++ {
					sum := bd[f]
					for c := 0; c < C; c++ {
						for kh := 0; kh < HH; kh++ {
							xRow := ((n*C+c)*HP+i*s+kh)*WP + j*s
							wRow := ((f*C+c)*HH + kh) * WW
							for kw := 0; kw < WW; kw++ {
								sum += xp[xRow+kw] * wd[wRow+kw]
							}
						}
					}
					od[((n*F+f)*HOut+i)*WOut+j] = sum
				}
			}
		}
	}

	return out, &ConvCache{x: x, w: w, b: b, param: param}, nil
}

// ConvBackwardNaive computes the convolution gradients.
//
//   - db[f] = Σ dout[:, f, :, :]
//   - dw[f,c,kh,kw] = Σ_{n,i,j} dout[n,f,i,j] * xPad[n,c,i*s+kh,j*s+kw]
//   - dx: dout[n,f,i,j] * w[f,c,kh,kw] is scattered into the padded input at
//     (i*s+kh, j*s+kw), then the padding rows and columns are discarded.
func ConvBackwardNaive(dout *tensor.Tensor, cache *ConvCache) (dx, dw, db *tensor.Tensor, err error) {
	const op = "conv backward"

	if cache == nil {
		return nil, nil, nil, cacheError(op)
	}

	x, w, param := cache.x, cache.w, cache.param
	N, C, H, W := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	F, HH, WW := w.Dim(0), w.Dim(2), w.Dim(3)

	HOut, WOut, err := param.OutputSize(H, W, HH, WW)
	if err != nil {
		return nil, nil, nil, err
	}
	if !dout.Shape().Equal(tensor.Shape{N, F, HOut, WOut}) {
		return nil, nil, nil, shapeError(op, "dout %v, want [%d %d %d %d]", dout.Shape(), N, F, HOut, WOut)
	}

	xPad, err := x.Pad2D(param.Pad)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}
	HP, WP := xPad.Dim(2), xPad.Dim(3)
	s := param.Stride

	dxPad := tensor.ZerosLike(xPad)
	dw = tensor.ZerosLike(w)
	db = tensor.ZerosLike(cache.b)

	dd, xp, wd := dout.Data(), xPad.Data(), w.Data()
	dxp, dwd, dbd := dxPad.Data(), dw.Data(), db.Data()

	for n := 0; n < N; n++ {
		for f := 0; f < F; f++ {
			for i := 0; i < HOut; i++ {
				for j := 0; j < WOut; j++ {
					g := dd[((n*F+f)*HOut+i)*WOut+j]
					dbd[f] += g
					for c := 0; c < C; c++ {
						for kh := 0; kh < HH; kh++ {
							xRow := ((n*C+c)*HP+i*s+kh)*WP + j*s
							wRow := ((f*C+c)*HH + kh) * WW
							for kw := 0; kw < WW; kw++ {
								dwd[wRow+kw] += g * xp[xRow+kw]
								dxp[xRow+kw] += g * wd[wRow+kw]
							}
						}
					}
				}
			}
		}
	}

	dx, err = dxPad.Crop2D(param.Pad)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}
	return dx, dw, db, nil
}
