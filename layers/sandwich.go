// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layers

import (
	"github.com/born-ml/layerkit/internal/layers"
	"github.com/born-ml/layerkit/tensor"
)

// Sandwich layers

// AffineReLUCache is produced by AffineReLUForward.
type AffineReLUCache = layers.AffineReLUCache

// AffineBatchNormReLUCache is produced by AffineBatchNormReLUForward.
type AffineBatchNormReLUCache = layers.AffineBatchNormReLUCache

// ConvReLUCache is produced by ConvReLUForward.
type ConvReLUCache = layers.ConvReLUCache

// ConvReLUPoolCache is produced by ConvReLUPoolForward.
type ConvReLUPoolCache = layers.ConvReLUPoolCache

// AffineReLUForward computes relu(affine(x, w, b)).
func AffineReLUForward(x, w, b *tensor.Tensor) (*tensor.Tensor, *AffineReLUCache, error) {
	return layers.AffineReLUForward(x, w, b)
}

// AffineReLUBackward returns dx, dw and db.
func AffineReLUBackward(dout *tensor.Tensor, cache *AffineReLUCache) (dx, dw, db *tensor.Tensor, err error) {
	return layers.AffineReLUBackward(dout, cache)
}

// AffineBatchNormReLUForward computes relu(batchnorm(affine(x, w, b))).
func AffineBatchNormReLUForward(x, w, b, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *AffineBatchNormReLUCache, error) {
	return layers.AffineBatchNormReLUForward(x, w, b, gamma, beta, param)
}

// AffineBatchNormReLUBackward returns dx, dw, db, dgamma and dbeta.
func AffineBatchNormReLUBackward(dout *tensor.Tensor, cache *AffineBatchNormReLUCache) (dx, dw, db, dgamma, dbeta *tensor.Tensor, err error) {
	return layers.AffineBatchNormReLUBackward(dout, cache)
}

// ConvReLUForward computes relu(conv(x, w, b)).
func ConvReLUForward(x, w, b *tensor.Tensor, param ConvParam) (*tensor.Tensor, *ConvReLUCache, error) {
	return layers.ConvReLUForward(x, w, b, param)
}

// ConvReLUBackward returns dx, dw and db.
func ConvReLUBackward(dout *tensor.Tensor, cache *ConvReLUCache) (dx, dw, db *tensor.Tensor, err error) {
	return layers.ConvReLUBackward(dout, cache)
}

// ConvReLUPoolForward computes maxpool(relu(conv(x, w, b))).
//
// Example:
//
//	out, cache, err := layers.ConvReLUPoolForward(x, w, b,
//	    layers.ConvParam{Stride: 1, Pad: 1},
//	    layers.PoolParam{PoolHeight: 2, PoolWidth: 2, Stride: 2})
func ConvReLUPoolForward(x, w, b *tensor.Tensor, convParam ConvParam, poolParam PoolParam) (*tensor.Tensor, *ConvReLUPoolCache, error) {
	return layers.ConvReLUPoolForward(x, w, b, convParam, poolParam)
}

// ConvReLUPoolBackward returns dx, dw and db.
func ConvReLUPoolBackward(dout *tensor.Tensor, cache *ConvReLUPoolCache) (dx, dw, db *tensor.Tensor, err error) {
	return layers.ConvReLUPoolBackward(dout, cache)
}
