package tensor

import "fmt"

// Reshape returns a view of t with a new shape. The view shares the backing
// slice, so writes through either tensor are visible in both.
//
// A single -1 dimension is inferred from the element count.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3, 4})
//	flat, _ := x.Reshape(tensor.Shape{2, -1}) // Shape: [2, 12]
func (t *Tensor) Reshape(shape Shape) (*Tensor, error) {
	resolved, err := shape.Infer(len(t.data))
	if err != nil {
		return nil, fmt.Errorf("reshape %v: %w", t.shape, err)
	}
	return &Tensor{
		shape:  resolved,
		stride: resolved.ComputeStrides(),
		data:   t.data,
	}, nil
}

// Transpose permutes the axes of t and returns a contiguous copy.
// With no axes the dimension order is reversed.
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{2, 3, 4, 5})
//	y, _ := x.Transpose(0, 2, 3, 1) // Shape: [2, 4, 5, 3]
func (t *Tensor) Transpose(axes ...int) (*Tensor, error) {
	rank := len(t.shape)
	if len(axes) == 0 {
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = rank - 1 - i
		}
	}
	if len(axes) != rank {
		return nil, fmt.Errorf("transpose: got %d axes for rank %d tensor", len(axes), rank)
	}

	seen := make([]bool, rank)
	newShape := make(Shape, rank)
	srcStride := make([]int, rank)
	for i, a := range axes {
		if a < 0 || a >= rank || seen[a] {
			return nil, fmt.Errorf("transpose: invalid permutation %v", axes)
		}
		seen[a] = true
		newShape[i] = t.shape[a]
		srcStride[i] = t.stride[a]
	}

	out := Zeros(newShape)
	idx := make([]int, rank)
	for dst := range out.data {
		src := 0
		for i, v := range idx {
			src += v * srcStride[i]
		}
		out.data[dst] = t.data[src]

		// Advance the row-major counter over the output shape.
		for i := rank - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < newShape[i] {
				break
			}
			idx[i] = 0
		}
	}
	return out, nil
}

// Pad2D zero-pads the last two axes of t by pad on every side.
//
// Example:
//
//	x := tensor.Ones(tensor.Shape{1, 1, 2, 2})
//	y, _ := x.Pad2D(1) // Shape: [1, 1, 4, 4], ones in the centre
func (t *Tensor) Pad2D(pad int) (*Tensor, error) {
	if len(t.shape) < 2 {
		return nil, fmt.Errorf("pad2d: tensor must have at least 2 dimensions, got %dD", len(t.shape))
	}
	if pad < 0 {
		return nil, fmt.Errorf("pad2d: negative padding %d", pad)
	}
	if pad == 0 {
		return t.Clone(), nil
	}

	rank := len(t.shape)
	H, W := t.shape[rank-2], t.shape[rank-1]
	HP, WP := H+2*pad, W+2*pad

	padded := t.shape.Clone()
	padded[rank-2] = HP
	padded[rank-1] = WP
	out := Zeros(padded)

	planes := len(t.data) / (H * W)
	for p := 0; p < planes; p++ {
		for h := 0; h < H; h++ {
			src := p*H*W + h*W
			dst := p*HP*WP + (h+pad)*WP + pad
			copy(out.data[dst:dst+W], t.data[src:src+W])
		}
	}
	return out, nil
}

// Crop2D removes pad rows and columns from every side of the last two axes.
// It is the inverse of Pad2D.
func (t *Tensor) Crop2D(pad int) (*Tensor, error) {
	if len(t.shape) < 2 {
		return nil, fmt.Errorf("crop2d: tensor must have at least 2 dimensions, got %dD", len(t.shape))
	}
	if pad < 0 {
		return nil, fmt.Errorf("crop2d: negative padding %d", pad)
	}
	if pad == 0 {
		return t.Clone(), nil
	}

	rank := len(t.shape)
	HP, WP := t.shape[rank-2], t.shape[rank-1]
	H, W := HP-2*pad, WP-2*pad
	if H <= 0 || W <= 0 {
		return nil, fmt.Errorf("crop2d: padding %d too large for %dx%d plane", pad, HP, WP)
	}

	cropped := t.shape.Clone()
	cropped[rank-2] = H
	cropped[rank-1] = W
	out := Zeros(cropped)

	planes := len(t.data) / (HP * WP)
	for p := 0; p < planes; p++ {
		for h := 0; h < H; h++ {
			src := p*HP*WP + (h+pad)*WP + pad
			dst := p*H*W + h*W
			copy(out.data[dst:dst+W], t.data[src:src+W])
		}
	}
	return out, nil
}
