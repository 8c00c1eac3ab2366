package layers

import (
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/pkg/errors"
)

// SpatialBatchNormCache wraps the vanilla batch norm cache with the layout
// of the original input.
type SpatialBatchNormCache struct {
	bn    *BatchNormCache
	shape tensor.Shape // [N, C, H, W]
}

// SpatialBatchNormForward normalizes each channel of x over all N×H×W
// positions.
//
// Shapes:
//   - x: [N, C, H, W]
//   - gamma, beta: [C]
//   - out: [N, C, H, W]
//
// The input is laid out as [N*H*W, C] (transpose to [N, H, W, C] then
// reshape) and handed to BatchNormForward, so running statistics and modes
// behave exactly as in the vanilla layer. Test mode returns a nil cache.
func SpatialBatchNormForward(x, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *SpatialBatchNormCache, error) {
	const op = "spatial batchnorm forward"

	if x.Rank() != 4 {
		return nil, nil, shapeError(op, "x must be 4D [N,C,H,W], got %v", x.Shape())
	}
	C := x.Dim(1)

	flat, err := toChannelsLast(x, C)
	if err != nil {
		return nil, nil, errors.Wrap(err, op)
	}

	outFlat, bnCache, err := BatchNormForward(flat, gamma, beta, param)
	if err != nil {
		return nil, nil, errors.Wrap(err, op)
	}

	out, err := fromChannelsLast(outFlat, x.Shape())
	if err != nil {
		return nil, nil, errors.Wrap(err, op)
	}

	if bnCache == nil {
		return out, nil, nil
	}
	return out, &SpatialBatchNormCache{bn: bnCache, shape: x.Shape().Clone()}, nil
}

// SpatialBatchNormBackward returns dx [N,C,H,W], dgamma [C] and dbeta [C].
// It reshapes dout the same way as the forward pass and delegates to
// BatchNormBackwardAlt.
func SpatialBatchNormBackward(dout *tensor.Tensor, cache *SpatialBatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error) {
	const op = "spatial batchnorm backward"

	if cache == nil {
		return nil, nil, nil, cacheError(op)
	}
	if !dout.Shape().Equal(cache.shape) {
		return nil, nil, nil, shapeError(op, "dout %v, cached input %v", dout.Shape(), cache.shape)
	}

	doutFlat, err := toChannelsLast(dout, cache.shape[1])
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}

	dxFlat, dgamma, dbeta, err := BatchNormBackwardAlt(doutFlat, cache.bn)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}

	dx, err = fromChannelsLast(dxFlat, cache.shape)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}
	return dx, dgamma, dbeta, nil
}

// toChannelsLast maps [N, C, H, W] to [N*H*W, C].
func toChannelsLast(x *tensor.Tensor, channels int) (*tensor.Tensor, error) {
	nhwc, err := x.Transpose(0, 2, 3, 1)
	if err != nil {
		return nil, err
	}
	return nhwc.Reshape(tensor.Shape{-1, channels})
}

// fromChannelsLast maps [N*H*W, C] back to shape [N, C, H, W].
func fromChannelsLast(flat *tensor.Tensor, shape tensor.Shape) (*tensor.Tensor, error) {
	nhwc, err := flat.Reshape(tensor.Shape{shape[0], shape[2], shape[3], shape[1]})
	if err != nil {
		return nil, err
	}
	return nhwc.Transpose(0, 3, 1, 2)
}
