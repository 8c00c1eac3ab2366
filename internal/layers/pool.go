package layers

import (
	"github.com/born-ml/layerkit/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// PoolParam configures 2D max pooling. There is no padding.
type PoolParam struct {
	PoolHeight int `yaml:"pool_height"`
	PoolWidth  int `yaml:"pool_width"`
	Stride     int `yaml:"stride"`
}

// OutputSize returns H' = 1 + (H-ph)/s and W' = 1 + (W-pw)/s. Windows that do
// not tile the input exactly are rejected with ErrInvalidConfig.
func (p PoolParam) OutputSize(H, W int) (int, int, error) {
	const op = "max pool"

	if p.PoolHeight <= 0 || p.PoolWidth <= 0 {
		return 0, 0, configError(op, "pool size must be positive, got %dx%d", p.PoolHeight, p.PoolWidth)
	}
	if p.Stride <= 0 {
		return 0, 0, configError(op, "stride must be positive, got %d", p.Stride)
	}
	spanH, spanW := H-p.PoolHeight, W-p.PoolWidth
	if spanH < 0 || spanW < 0 {
		return 0, 0, configError(op, "%dx%d window larger than %dx%d input", p.PoolHeight, p.PoolWidth, H, W)
	}
	if spanH%p.Stride != 0 || spanW%p.Stride != 0 {
		return 0, 0, configError(op, "stride %d does not evenly tile %dx%d input with %dx%d window",
			p.Stride, H, W, p.PoolHeight, p.PoolWidth)
	}
	return 1 + spanH/p.Stride, 1 + spanW/p.Stride, nil
}

// MaxPoolCache holds the forward input and param.
type MaxPoolCache struct {
	x     *tensor.Tensor
	param PoolParam
}

// MaxPoolForwardNaive takes the maximum over each pooling window,
// independently for every (n, c) plane.
//
// Shapes:
//   - x: [N, C, H, W]
//   - out: [N, C, H', W']
//
// Example (2x2 pool, stride=2):
//
//	Input:  [[1, 2],  Output: [4]
//	         [3, 4]]
func MaxPoolForwardNaive(x *tensor.Tensor, param PoolParam) (*tensor.Tensor, *MaxPoolCache, error) {
	const op = "max pool forward"

	if x.Rank() != 4 {
		return nil, nil, shapeError(op, "x must be 4D [N,C,H,W], got %v", x.Shape())
	}
	N, C, H, W := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	HOut, WOut, err := param.OutputSize(H, W)
	if err != nil {
		return nil, nil, err
	}

	out := tensor.Zeros(tensor.Shape{N, C, HOut, WOut})
	od := out.Data()
	window := make([]float64, param.PoolHeight*param.PoolWidth)

	outIdx := 0
	for plane := 0; plane < N*C; plane++ {
		for i := 0; i < HOut; i++ {
			for j := 0; j < WOut; j++ {
				gatherWindow(window, x.Data(), plane, i, j, H, W, param)
				od[outIdx] = floats.Max(window)
				outIdx++
			}
		}
	}

	return out, &MaxPoolCache{x: x, param: param}, nil
}

// MaxPoolBackwardNaive routes each upstream gradient to the input position
// that produced the window maximum. Ties go to the first maximum in
// row-major window order. Gradients from overlapping windows accumulate.
//
// Example (2x2 pool, stride=2):
//
//	Input:  [[1, 2],  Input Grad: [[0, 0],
//	         [3, 4]]               [0, grad]]
func MaxPoolBackwardNaive(dout *tensor.Tensor, cache *MaxPoolCache) (*tensor.Tensor, error) {
	const op = "max pool backward"

	if cache == nil {
		return nil, cacheError(op)
	}

	x, param := cache.x, cache.param
	N, C, H, W := x.Dim(0), x.Dim(1), x.Dim(2), x.Dim(3)
	HOut, WOut, err := param.OutputSize(H, W)
	if err != nil {
		return nil, err
	}
	if !dout.Shape().Equal(tensor.Shape{N, C, HOut, WOut}) {
		return nil, shapeError(op, "dout %v, want [%d %d %d %d]", dout.Shape(), N, C, HOut, WOut)
	}

	dx := tensor.ZerosLike(x)
	dxd, dd := dx.Data(), dout.Data()
	window := make([]float64, param.PoolHeight*param.PoolWidth)
	s := param.Stride

	outIdx := 0
	for plane := 0; plane < N*C; plane++ {
		for i := 0; i < HOut; i++ {
			for j := 0; j < WOut; j++ {
				gatherWindow(window, x.Data(), plane, i, j, H, W, param)
				// MaxIdx returns the first index on ties.
				k := floats.MaxIdx(window)
				h := i*s + k/param.PoolWidth
				w := j*s + k%param.PoolWidth
				dxd[(plane*H+h)*W+w] += dd[outIdx]
				outIdx++
			}
		}
	}

	return dx, nil
}

// gatherWindow copies the pooling window for output (i, j) of the given
// (n, c) plane into buf in row-major order.
func gatherWindow(buf, data []float64, plane, i, j, H, W int, param PoolParam) {
	s := param.Stride
	for kh := 0; kh < param.PoolHeight; kh++ {
		row := (plane*H+i*s+kh)*W + j*s
		copy(buf[kh*param.PoolWidth:(kh+1)*param.PoolWidth], data[row:row+param.PoolWidth])
	}
}
