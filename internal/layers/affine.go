package layers

import (
	"github.com/born-ml/layerkit/internal/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AffineCache holds the forward inputs needed by AffineBackward.
type AffineCache struct {
	x *tensor.Tensor
	w *tensor.Tensor
	b *tensor.Tensor
}

// AffineForward computes out = x_flat · w + b.
//
// Shapes:
//   - x: [N, d1, ..., dk], flattened to [N, D] with D = d1*...*dk
//   - w: [D, M]
//   - b: [M]
//   - out: [N, M]
func AffineForward(x, w, b *tensor.Tensor) (*tensor.Tensor, *AffineCache, error) {
	const op = "affine forward"

	if x.Rank() < 1 {
		return nil, nil, shapeError(op, "x must have a batch dimension")
	}
	if w.Rank() != 2 {
		return nil, nil, shapeError(op, "w must be 2D [D,M], got %v", w.Shape())
	}
	if b.Rank() != 1 {
		return nil, nil, shapeError(op, "b must be 1D [M], got %v", b.Shape())
	}

	N := x.Dim(0)
	D := x.NumElements() / N
	M := w.Dim(1)
	if D != w.Dim(0) {
		return nil, nil, shapeError(op, "x %v flattens to D=%d but w has %d rows", x.Shape(), D, w.Dim(0))
	}
	if b.Dim(0) != M {
		return nil, nil, shapeError(op, "b has %d elements but w has %d columns", b.Dim(0), M)
	}

	xFlat := mat.NewDense(N, D, x.Data())
	wMat := mat.NewDense(D, M, w.Data())

	out := tensor.Zeros(tensor.Shape{N, M})
	outMat := mat.NewDense(N, M, out.Data())
	outMat.Mul(xFlat, wMat)

	data := out.Data()
	bias := b.Data()
	for i := 0; i < N; i++ {
		floats.Add(data[i*M:(i+1)*M], bias)
	}

	return out, &AffineCache{x: x, w: w, b: b}, nil
}

// AffineBackward computes the affine gradients.
//
//   - dx = dout · wᵀ, reshaped to x's shape
//   - dw = x_flatᵀ · dout
//   - db = Σ_N dout
func AffineBackward(dout *tensor.Tensor, cache *AffineCache) (dx, dw, db *tensor.Tensor, err error) {
	const op = "affine backward"

	if cache == nil {
		return nil, nil, nil, cacheError(op)
	}

	x, w := cache.x, cache.w
	N := x.Dim(0)
	D, M := w.Dim(0), w.Dim(1)
	if !dout.Shape().Equal(tensor.Shape{N, M}) {
		return nil, nil, nil, shapeError(op, "dout %v, want [%d %d]", dout.Shape(), N, M)
	}

	doutMat := mat.NewDense(N, M, dout.Data())
	xFlat := mat.NewDense(N, D, x.Data())
	wMat := mat.NewDense(D, M, w.Data())

	// dx shares x's shape, so writing through the flat view reshapes for free.
	dx = tensor.ZerosLike(x)
	mat.NewDense(N, D, dx.Data()).Mul(doutMat, wMat.T())

	dw = tensor.ZerosLike(w)
	mat.NewDense(D, M, dw.Data()).Mul(xFlat.T(), doutMat)

	db = tensor.Zeros(tensor.Shape{M})
	dbData := db.Data()
	doutData := dout.Data()
	for i := 0; i < N; i++ {
		floats.Add(dbData, doutData[i*M:(i+1)*M])
	}

	return dx, dw, db, nil
}
