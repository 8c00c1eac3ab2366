// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gradcheck verifies analytic gradients against centred finite
// differences.
//
// Example:
//
//	_, cache, _ := layers.AffineForward(x, w, b)
//	dx, _, _, _ := layers.AffineBackward(dout, cache)
//	numeric := gradcheck.NumericalGradientArray(func() *tensor.Tensor {
//	    out, _, _ := layers.AffineForward(x, w, b)
//	    return out
//	}, x, dout, 0)
//	rel, _ := gradcheck.RelError(numeric, dx) // expect < 1e-7
package gradcheck

import (
	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/tensor"
)

// DefaultStep is the finite-difference step used when h is zero.
const DefaultStep = gradcheck.DefaultStep

// NumericalGradient returns the centred finite-difference gradient of f with
// respect to every element of x. x is perturbed in place and restored.
func NumericalGradient(f func() float64, x *tensor.Tensor, h float64) *tensor.Tensor {
	return gradcheck.NumericalGradient(f, x, h)
}

// NumericalGradientArray returns the finite-difference gradient of
// Σ f() ⊙ dout with respect to x.
func NumericalGradientArray(f func() *tensor.Tensor, x, dout *tensor.Tensor, h float64) *tensor.Tensor {
	return gradcheck.NumericalGradientArray(f, x, dout, h)
}

// RelError returns max |a-b| / max(1e-8, |a|+|b|).
func RelError(a, b *tensor.Tensor) (float64, error) {
	return gradcheck.RelError(a, b)
}
