package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sum returns the sum of all elements.
func (t *Tensor) Sum() float64 {
	return floats.Sum(t.data)
}

// Max returns the largest element.
func (t *Tensor) Max() float64 {
	return floats.Max(t.data)
}

// Min returns the smallest element.
func (t *Tensor) Min() float64 {
	return floats.Min(t.data)
}

// Map returns a new tensor with f applied to every element.
func (t *Tensor) Map(f func(float64) float64) *Tensor {
	out := ZerosLike(t)
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// Scale returns a new tensor with every element multiplied by s.
func (t *Tensor) Scale(s float64) *Tensor {
	out := t.Clone()
	floats.Scale(s, out.data)
	return out
}

// Mul returns the elementwise product of t and other.
// Panics if the shapes differ.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	if !t.shape.Equal(other.shape) {
		panic("tensor: mul shape mismatch")
	}
	out := t.Clone()
	floats.Mul(out.data, other.data)
	return out
}

// AllClose reports whether t and other have the same shape and every pair of
// elements satisfies |a-b| <= atol + rtol*|b|.
func (t *Tensor) AllClose(other *Tensor, rtol, atol float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for i, a := range t.data {
		b := other.data[i]
		if math.Abs(a-b) > atol+rtol*math.Abs(b) {
			return false
		}
	}
	return true
}
