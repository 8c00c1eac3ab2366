// Package gradcheck compares analytic gradients against centred finite
// differences.
package gradcheck

import (
	"math"

	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// DefaultStep is the finite-difference step used when h is zero.
const DefaultStep = 1e-5

// NumericalGradient returns the centred finite-difference gradient of the
// scalar function f with respect to every element of x.
//
// f must read x (typically by closing over it). x is perturbed in place one
// element at a time and restored before NumericalGradient returns, so f must
// not be called concurrently with it.
//
// Example:
//
//	grad := gradcheck.NumericalGradient(func() float64 {
//	    loss, _, _ := layers.SoftmaxLoss(x, y)
//	    return loss
//	}, x, 0)
func NumericalGradient(f func() float64, x *tensor.Tensor, h float64) *tensor.Tensor {
	if h == 0 {
		h = DefaultStep
	}

	data := x.Data()
	origin := make([]float64, len(data))
	copy(origin, data)

	eval := func(p []float64) float64 {
		copy(data, p)
		return f()
	}
	grad := fd.Gradient(nil, eval, origin, &fd.Settings{
		Formula: fd.Central,
		Step:    h,
	})
	copy(data, origin)

	out, err := tensor.Wrap(grad, x.Shape())
	if err != nil {
		// fd.Gradient returns one entry per element of x.
		panic(err)
	}
	return out
}

// NumericalGradientArray returns the finite-difference gradient of
// Σ f() ⊙ dout with respect to x. This is what a backward pass should return
// when f is a forward pass and dout its upstream gradient.
func NumericalGradientArray(f func() *tensor.Tensor, x, dout *tensor.Tensor, h float64) *tensor.Tensor {
	return NumericalGradient(func() float64 {
		out := f()
		return floats.Dot(out.Data(), dout.Data())
	}, x, h)
}

// RelError returns max |a-b| / max(1e-8, |a|+|b|) over all elements.
func RelError(a, b *tensor.Tensor) (float64, error) {
	if !a.Shape().Equal(b.Shape()) {
		return 0, errors.Errorf("rel error: shape %v != %v", a.Shape(), b.Shape())
	}

	worst := 0.0
	bd := b.Data()
	for i, av := range a.Data() {
		bv := bd[i]
		rel := math.Abs(av-bv) / math.Max(1e-8, math.Abs(av)+math.Abs(bv))
		if rel > worst {
			worst = rel
		}
	}
	return worst, nil
}
