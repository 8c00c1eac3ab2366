package layers

import (
	"github.com/born-ml/layerkit/internal/tensor"
)

// ReLUCache is the input of the forward pass.
type ReLUCache struct {
	x *tensor.Tensor
}

// ReLUForward computes out = max(0, x) elementwise for a tensor of any shape.
func ReLUForward(x *tensor.Tensor) (*tensor.Tensor, *ReLUCache) {
	out := x.Map(func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
	return out, &ReLUCache{x: x}
}

// ReLUBackward passes dout through where the cached input is strictly
// positive. The gradient is exactly zero at and below zero.
func ReLUBackward(dout *tensor.Tensor, cache *ReLUCache) (*tensor.Tensor, error) {
	const op = "relu backward"

	if cache == nil {
		return nil, cacheError(op)
	}
	if !dout.Shape().Equal(cache.x.Shape()) {
		return nil, shapeError(op, "dout %v, cached input %v", dout.Shape(), cache.x.Shape())
	}

	dx := tensor.ZerosLike(dout)
	dxData := dx.Data()
	xData := cache.x.Data()
	for i, g := range dout.Data() {
		if xData[i] > 0 {
			dxData[i] = g
		}
	}
	return dx, nil
}
