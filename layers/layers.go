// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides forward and backward passes for neural network
// layer primitives with hand-derived gradients.
//
// Every forward function returns its output and a cache; the matching
// backward function takes the upstream gradient and that cache and returns
// the gradients of each differentiable forward input, in forward order.
//
// Example:
//
//	scores, fc, err := layers.AffineForward(x, w, b)
//	if err != nil {
//	    return err
//	}
//	loss, dscores, err := layers.SoftmaxLoss(scores, y)
//	if err != nil {
//	    return err
//	}
//	dx, dw, db, err := layers.AffineBackward(dscores, fc)
package layers

import (
	"github.com/born-ml/layerkit/internal/layers"
	"github.com/born-ml/layerkit/tensor"
)

// Errors returned by every layer. Match them with errors.Is.
var (
	ErrInvalidMode   = layers.ErrInvalidMode
	ErrShapeMismatch = layers.ErrShapeMismatch
	ErrInvalidConfig = layers.ErrInvalidConfig
	ErrInvalidCache  = layers.ErrInvalidCache
)

// Mode selects training or inference behaviour.
type Mode = layers.Mode

// Modes.
const (
	Train Mode = layers.Train
	Test  Mode = layers.Test
)

// ParseMode converts "train" or "test" into a Mode.
func ParseMode(s string) (Mode, error) {
	return layers.ParseMode(s)
}

// Defaults.
const (
	DefaultBatchNormEps      = layers.DefaultBatchNormEps
	DefaultBatchNormMomentum = layers.DefaultBatchNormMomentum
	DefaultSVMEps            = layers.DefaultSVMEps
	DefaultSoftmaxEps        = layers.DefaultSoftmaxEps
)

// Parameters

// BatchNormParam configures batch normalization and carries the running
// statistics.
type BatchNormParam = layers.BatchNormParam

// NewBatchNormParam returns a param with default eps and momentum.
func NewBatchNormParam(mode Mode) *BatchNormParam {
	return layers.NewBatchNormParam(mode)
}

// DropoutParam configures inverted dropout.
type DropoutParam = layers.DropoutParam

// ConvParam configures a 2D convolution.
type ConvParam = layers.ConvParam

// PoolParam configures 2D max pooling.
type PoolParam = layers.PoolParam

// Caches

// AffineCache is produced by AffineForward.
type AffineCache = layers.AffineCache

// ReLUCache is produced by ReLUForward.
type ReLUCache = layers.ReLUCache

// BatchNormCache is produced by BatchNormForward in Train mode.
type BatchNormCache = layers.BatchNormCache

// SpatialBatchNormCache is produced by SpatialBatchNormForward in Train mode.
type SpatialBatchNormCache = layers.SpatialBatchNormCache

// DropoutCache is produced by DropoutForward.
type DropoutCache = layers.DropoutCache

// ConvCache is produced by ConvForwardNaive.
type ConvCache = layers.ConvCache

// MaxPoolCache is produced by MaxPoolForwardNaive.
type MaxPoolCache = layers.MaxPoolCache

// Affine

// AffineForward computes x.reshape(N, D) @ w + b.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 4, 5, 6}) // flattened to [2, 120]
//	w := tensor.Zeros(tensor.Shape{120, 3})
//	b := tensor.Zeros(tensor.Shape{3})
//	out, cache, err := layers.AffineForward(x, w, b) // out: [2, 3]
func AffineForward(x, w, b *tensor.Tensor) (*tensor.Tensor, *AffineCache, error) {
	return layers.AffineForward(x, w, b)
}

// AffineBackward returns dx (shaped like x), dw and db.
func AffineBackward(dout *tensor.Tensor, cache *AffineCache) (dx, dw, db *tensor.Tensor, err error) {
	return layers.AffineBackward(dout, cache)
}

// ReLU

// ReLUForward computes max(0, x).
func ReLUForward(x *tensor.Tensor) (*tensor.Tensor, *ReLUCache) {
	return layers.ReLUForward(x)
}

// ReLUBackward passes dout through where the input was positive.
func ReLUBackward(dout *tensor.Tensor, cache *ReLUCache) (*tensor.Tensor, error) {
	return layers.ReLUBackward(dout, cache)
}

// Batch normalization

// BatchNormForward normalizes each feature of an [N, D] input.
func BatchNormForward(x, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *BatchNormCache, error) {
	return layers.BatchNormForward(x, gamma, beta, param)
}

// BatchNormBackward backpropagates node by node through the normalization.
func BatchNormBackward(dout *tensor.Tensor, cache *BatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error) {
	return layers.BatchNormBackward(dout, cache)
}

// BatchNormBackwardAlt computes the same gradients in closed form.
func BatchNormBackwardAlt(dout *tensor.Tensor, cache *BatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error) {
	return layers.BatchNormBackwardAlt(dout, cache)
}

// SpatialBatchNormForward normalizes each channel of an [N, C, H, W] input.
func SpatialBatchNormForward(x, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *SpatialBatchNormCache, error) {
	return layers.SpatialBatchNormForward(x, gamma, beta, param)
}

// SpatialBatchNormBackward returns dx, dgamma and dbeta.
func SpatialBatchNormBackward(dout *tensor.Tensor, cache *SpatialBatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error) {
	return layers.SpatialBatchNormBackward(dout, cache)
}

// Dropout

// DropoutForward applies inverted dropout in Train mode and is the identity
// in Test mode.
//
// Example:
//
//	param := layers.DropoutParam{P: 0.5, Mode: layers.Train}.WithSeed(123)
//	out, cache, err := layers.DropoutForward(x, param)
func DropoutForward(x *tensor.Tensor, param DropoutParam) (*tensor.Tensor, *DropoutCache, error) {
	return layers.DropoutForward(x, param)
}

// DropoutBackward applies the forward mask and scale to dout.
func DropoutBackward(dout *tensor.Tensor, cache *DropoutCache) (*tensor.Tensor, error) {
	return layers.DropoutBackward(dout, cache)
}

// Convolution and pooling

// ConvForwardNaive computes a direct 2D convolution.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3, 4, 4})
//	w := tensor.Zeros(tensor.Shape{2, 3, 3, 3})
//	b := tensor.Zeros(tensor.Shape{2})
//	out, cache, err := layers.ConvForwardNaive(x, w, b, layers.ConvParam{Stride: 1, Pad: 1})
//	// out: [2, 2, 4, 4]
func ConvForwardNaive(x, w, b *tensor.Tensor, param ConvParam) (*tensor.Tensor, *ConvCache, error) {
	return layers.ConvForwardNaive(x, w, b, param)
}

// ConvBackwardNaive returns dx, dw and db.
func ConvBackwardNaive(dout *tensor.Tensor, cache *ConvCache) (dx, dw, db *tensor.Tensor, err error) {
	return layers.ConvBackwardNaive(dout, cache)
}

// MaxPoolForwardNaive takes the maximum over each pooling window.
func MaxPoolForwardNaive(x *tensor.Tensor, param PoolParam) (*tensor.Tensor, *MaxPoolCache, error) {
	return layers.MaxPoolForwardNaive(x, param)
}

// MaxPoolBackwardNaive routes each gradient to its window's maximum.
func MaxPoolBackwardNaive(dout *tensor.Tensor, cache *MaxPoolCache) (*tensor.Tensor, error) {
	return layers.MaxPoolBackwardNaive(dout, cache)
}

// Losses

// SVMLoss computes the multiclass margin loss and its gradient.
func SVMLoss(x *tensor.Tensor, y []int) (float64, *tensor.Tensor, error) {
	return layers.SVMLoss(x, y)
}

// SVMLossEps is SVMLoss with an explicit denominator epsilon.
func SVMLossEps(x *tensor.Tensor, y []int, eps float64) (float64, *tensor.Tensor, error) {
	return layers.SVMLossEps(x, y, eps)
}

// SoftmaxLoss computes the softmax cross-entropy loss and its gradient.
func SoftmaxLoss(x *tensor.Tensor, y []int) (float64, *tensor.Tensor, error) {
	return layers.SoftmaxLoss(x, y)
}
