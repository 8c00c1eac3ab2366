// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense float64 tensors
// consumed and produced by the layers package.
//
// Tensors are row-major. Reshape returns a view sharing the backing slice;
// every other operation allocates a new tensor.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3, 4, 4})
//	flat, _ := x.Reshape(tensor.Shape{2, -1}) // Shape: [2, 48]
package tensor

import (
	"math/rand/v2"

	"github.com/born-ml/layerkit/internal/tensor"
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a dense, row-major array of float64 values.
type Tensor = tensor.Tensor

// Creation functions

// New creates a zero-filled tensor, failing on a non-positive dimension.
func New(shape Shape) (*Tensor, error) {
	return tensor.New(shape)
}

// Zeros creates a tensor filled with zeros. Panics on an invalid shape.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3})
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// ZerosLike creates a zero-filled tensor with the shape of t.
func ZerosLike(t *Tensor) *Tensor {
	return tensor.ZerosLike(t)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return tensor.Ones(shape)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	x := tensor.Full(tensor.Shape{2, 3}, 3.14)
func Full(shape Shape, value float64) *Tensor {
	return tensor.Full(shape, value)
}

// Randn creates a tensor with standard normal values drawn from src.
//
// Example:
//
//	x := tensor.Randn(tensor.Shape{4, 10}, rand.NewPCG(1, 2))
func Randn(shape Shape, src rand.Source) *Tensor {
	return tensor.Randn(shape, src)
}

// Uniform creates a tensor with values uniformly distributed in [lo, hi).
func Uniform(shape Shape, lo, hi float64, src rand.Source) *Tensor {
	return tensor.Uniform(shape, lo, hi, src)
}

// Linspace creates a tensor whose row-major elements step evenly from lo to
// hi inclusive.
//
// Example:
//
//	x := tensor.Linspace(tensor.Shape{2, 3}, 0, 1) // [0 0.2 0.4 0.6 0.8 1]
func Linspace(shape Shape, lo, hi float64) *Tensor {
	return tensor.Linspace(shape, lo, hi)
}

// FromSlice creates a tensor from a Go slice. The data is copied.
//
// Example:
//
//	x, err := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Wrap creates a tensor backed by data without copying it.
func Wrap(data []float64, shape Shape) (*Tensor, error) {
	return tensor.Wrap(data, shape)
}
