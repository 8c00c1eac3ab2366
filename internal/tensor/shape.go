package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks if the shape is valid (all dimensions > 0).
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim <= 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be > 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Infer resolves a single -1 wildcard so that the shape holds numElements
// elements.
//
// Examples:
//
//	Shape{2, -1}.Infer(12)    → (2, 6)
//	Shape{-1}.Infer(5)        → (5)
//	Shape{-1, -1}.Infer(4)    → error (more than one wildcard)
//	Shape{5, -1}.Infer(12)    → error (12 is not divisible by 5)
func (s Shape) Infer(numElements int) (Shape, error) {
	result := s.Clone()
	wildcard := -1
	known := 1
	for i, dim := range s {
		switch {
		case dim == -1:
			if wildcard >= 0 {
				return nil, fmt.Errorf("shape %v: only one dimension can be -1", s)
			}
			wildcard = i
		case dim <= 0:
			return nil, fmt.Errorf("shape %v: invalid dimension at index %d: %d", s, i, dim)
		default:
			known *= dim
		}
	}

	if wildcard < 0 {
		if known != numElements {
			return nil, fmt.Errorf("shape %v requires %d elements, but got %d", s, known, numElements)
		}
		return result, nil
	}

	if numElements%known != 0 {
		return nil, fmt.Errorf("shape %v: cannot infer -1 for %d elements", s, numElements)
	}
	result[wildcard] = numElements / known
	return result, nil
}
