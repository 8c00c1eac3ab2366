package layers

import (
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/pkg/errors"
)

// Sandwich layers chain primitives that commonly appear together. Each
// forward returns a cache bundling the caches of its stages; the matching
// backward unwinds them in reverse order.

// AffineReLUCache bundles the stages of AffineReLUForward.
type AffineReLUCache struct {
	affine *AffineCache
	relu   *ReLUCache
}

// AffineReLUForward computes relu(affine(x, w, b)).
func AffineReLUForward(x, w, b *tensor.Tensor) (*tensor.Tensor, *AffineReLUCache, error) {
	a, fc, err := AffineForward(x, w, b)
	if err != nil {
		return nil, nil, err
	}
	out, rc := ReLUForward(a)
	return out, &AffineReLUCache{affine: fc, relu: rc}, nil
}

// AffineReLUBackward returns dx, dw, db for AffineReLUForward.
func AffineReLUBackward(dout *tensor.Tensor, cache *AffineReLUCache) (dx, dw, db *tensor.Tensor, err error) {
	if cache == nil {
		return nil, nil, nil, cacheError("affine relu backward")
	}
	da, err := ReLUBackward(dout, cache.relu)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "affine relu backward")
	}
	return AffineBackward(da, cache.affine)
}

// AffineBatchNormReLUCache bundles the stages of AffineBatchNormReLUForward.
type AffineBatchNormReLUCache struct {
	affine *AffineCache
	bn     *BatchNormCache
	relu   *ReLUCache
}

// AffineBatchNormReLUForward computes relu(batchnorm(affine(x, w, b))).
// In Test mode the batch norm stage has no cache and the returned cache
// cannot be used for a backward pass.
func AffineBatchNormReLUForward(x, w, b, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *AffineBatchNormReLUCache, error) {
	a, fc, err := AffineForward(x, w, b)
	if err != nil {
		return nil, nil, err
	}
	n, bc, err := BatchNormForward(a, gamma, beta, param)
	if err != nil {
		return nil, nil, err
	}
	out, rc := ReLUForward(n)
	return out, &AffineBatchNormReLUCache{affine: fc, bn: bc, relu: rc}, nil
}

// AffineBatchNormReLUBackward returns dx, dw, db, dgamma, dbeta.
func AffineBatchNormReLUBackward(dout *tensor.Tensor, cache *AffineBatchNormReLUCache) (dx, dw, db, dgamma, dbeta *tensor.Tensor, err error) {
	const op = "affine batchnorm relu backward"

	if cache == nil {
		return nil, nil, nil, nil, nil, cacheError(op)
	}
	dn, err := ReLUBackward(dout, cache.relu)
	if err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, op)
	}
	da, dgamma, dbeta, err := BatchNormBackwardAlt(dn, cache.bn)
	if err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, op)
	}
	dx, dw, db, err = AffineBackward(da, cache.affine)
	if err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, op)
	}
	return dx, dw, db, dgamma, dbeta, nil
}

// ConvReLUCache bundles the stages of ConvReLUForward.
type ConvReLUCache struct {
	conv *ConvCache
	relu *ReLUCache
}

// ConvReLUForward computes relu(conv(x, w, b)).
func ConvReLUForward(x, w, b *tensor.Tensor, param ConvParam) (*tensor.Tensor, *ConvReLUCache, error) {
	a, cc, err := ConvForwardNaive(x, w, b, param)
	if err != nil {
		return nil, nil, err
	}
	out, rc := ReLUForward(a)
	return out, &ConvReLUCache{conv: cc, relu: rc}, nil
}

// ConvReLUBackward returns dx, dw, db for ConvReLUForward.
func ConvReLUBackward(dout *tensor.Tensor, cache *ConvReLUCache) (dx, dw, db *tensor.Tensor, err error) {
	if cache == nil {
		return nil, nil, nil, cacheError("conv relu backward")
	}
	da, err := ReLUBackward(dout, cache.relu)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "conv relu backward")
	}
	return ConvBackwardNaive(da, cache.conv)
}

// ConvReLUPoolCache bundles the stages of ConvReLUPoolForward.
type ConvReLUPoolCache struct {
	conv *ConvCache
	relu *ReLUCache
	pool *MaxPoolCache
}

// ConvReLUPoolForward computes maxpool(relu(conv(x, w, b))).
func ConvReLUPoolForward(x, w, b *tensor.Tensor, convParam ConvParam, poolParam PoolParam) (*tensor.Tensor, *ConvReLUPoolCache, error) {
	a, cc, err := ConvForwardNaive(x, w, b, convParam)
	if err != nil {
		return nil, nil, err
	}
	s, rc := ReLUForward(a)
	out, pc, err := MaxPoolForwardNaive(s, poolParam)
	if err != nil {
		return nil, nil, err
	}
	return out, &ConvReLUPoolCache{conv: cc, relu: rc, pool: pc}, nil
}

// ConvReLUPoolBackward returns dx, dw, db for ConvReLUPoolForward.
func ConvReLUPoolBackward(dout *tensor.Tensor, cache *ConvReLUPoolCache) (dx, dw, db *tensor.Tensor, err error) {
	const op = "conv relu pool backward"

	if cache == nil {
		return nil, nil, nil, cacheError(op)
	}
	ds, err := MaxPoolBackwardNaive(dout, cache.pool)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}
	da, err := ReLUBackward(ds, cache.relu)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, op)
	}
	return ConvBackwardNaive(da, cache.conv)
}
