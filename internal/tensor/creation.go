package tensor

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Zeros creates a tensor filled with zeros.
// Panics on an invalid shape.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{3, 4})
func Zeros(shape Shape) *Tensor {
	t, err := New(shape)
	if err != nil {
		panic(err)
	}
	return t
}

// ZerosLike creates a zero-filled tensor with the same shape as t.
func ZerosLike(t *Tensor) *Tensor {
	return Zeros(t.shape)
}

// Ones creates a tensor filled with ones.
func Ones(shape Shape) *Tensor {
	return Full(shape, 1)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t := tensor.Full(tensor.Shape{3, 3}, 3.14)
func Full(shape Shape, value float64) *Tensor {
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// Randn creates a tensor with values drawn from a standard normal
// distribution. The source makes the draw reproducible.
//
// Example:
//
//	src := rand.NewPCG(1, 2)
//	x := tensor.Randn(tensor.Shape{4, 5}, src)
func Randn(shape Shape, src rand.Source) *Tensor {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// Uniform creates a tensor with values uniformly distributed in [lo, hi).
func Uniform(shape Shape, lo, hi float64, src rand.Source) *Tensor {
	dist := distuv.Uniform{Min: lo, Max: hi, Src: src}
	t := Zeros(shape)
	for i := range t.data {
		t.data[i] = dist.Rand()
	}
	return t
}

// Linspace creates a tensor whose elements step evenly from lo to hi
// inclusive, in row-major order.
func Linspace(shape Shape, lo, hi float64) *Tensor {
	t := Zeros(shape)
	n := len(t.data)
	if n == 1 {
		t.data[0] = lo
		return t
	}
	step := (hi - lo) / float64(n-1)
	for i := range t.data {
		t.data[i] = lo + float64(i)*step
	}
	return t
}
