package layers

import (
	"math"

	"github.com/born-ml/layerkit/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Loss smoothing constants.
const (
	// DefaultSVMEps is added to N in the SVM loss denominator.
	DefaultSVMEps = 1e-3
	// DefaultSoftmaxEps is added to the correct-class probability before
	// taking the log.
	DefaultSoftmaxEps = 1e-8
)

// SVMLoss computes the multiclass margin loss with DefaultSVMEps.
func SVMLoss(x *tensor.Tensor, y []int) (float64, *tensor.Tensor, error) {
	return SVMLossEps(x, y, DefaultSVMEps)
}

// SVMLossEps computes the multiclass margin loss and its gradient.
//
// For example i and class j != y[i]:
//
//	margin[i,j] = max(0, x[i,j] - x[i,y[i]] + 1)
//
// loss = Σ margin / (N + eps). dx[i,j] is 1 wherever margin[i,j] > 0 and
// dx[i,y[i]] is minus the number of positive margins in row i, all divided by
// the same N + eps. An eps of zero gives the exact batch mean.
//
// Shapes:
//   - x: [N, C] class scores
//   - y: N labels in [0, C)
//   - dx: [N, C]
func SVMLossEps(x *tensor.Tensor, y []int, eps float64) (float64, *tensor.Tensor, error) {
	const op = "svm loss"

	if err := checkScores(op, x, y); err != nil {
		return 0, nil, err
	}
	N, C := x.Dim(0), x.Dim(1)
	xd := x.Data()
	denom := float64(N) + eps

	dx := tensor.ZerosLike(x)
	dxd := dx.Data()
	loss := 0.0
	for i := 0; i < N; i++ {
		correct := xd[i*C+y[i]]
		positive := 0
		for j := 0; j < C; j++ {
			if j == y[i] {
				continue
			}
			margin := xd[i*C+j] - correct + 1
			if margin > 0 {
				loss += margin
				dxd[i*C+j] = 1
				positive++
			}
		}
		dxd[i*C+y[i]] = -float64(positive)
	}
	floats.Scale(1/denom, dxd)

	return loss / denom, dx, nil
}

// SoftmaxLoss computes the cross-entropy loss of softmax probabilities and
// its gradient.
//
// Rows are shifted by their maximum before exponentiating, and
// DefaultSoftmaxEps is added inside the log so a zero probability never
// yields an infinite loss.
//
//	loss = -mean_i log(p[i,y[i]] + eps)
//	dx   = (p - onehot(y)) / N
func SoftmaxLoss(x *tensor.Tensor, y []int) (float64, *tensor.Tensor, error) {
	const op = "softmax loss"

	if err := checkScores(op, x, y); err != nil {
		return 0, nil, err
	}
	N, C := x.Dim(0), x.Dim(1)

	probs := x.Clone()
	pd := probs.Data()
	loss := 0.0
	for i := 0; i < N; i++ {
		row := pd[i*C : (i+1)*C]
		floats.AddConst(-floats.Max(row), row)
		for j := range row {
			row[j] = math.Exp(row[j])
		}
		floats.Scale(1/floats.Sum(row), row)

		loss -= math.Log(row[y[i]] + DefaultSoftmaxEps)
		row[y[i]]--
	}

	dx := probs
	floats.Scale(1/float64(N), dx.Data())
	return loss / float64(N), dx, nil
}

func checkScores(op string, x *tensor.Tensor, y []int) error {
	if x.Rank() != 2 {
		return shapeError(op, "scores must be 2D [N,C], got %v", x.Shape())
	}
	N, C := x.Dim(0), x.Dim(1)
	if len(y) != N {
		return shapeError(op, "%d labels for %d examples", len(y), N)
	}
	for i, label := range y {
		if label < 0 || label >= C {
			return shapeError(op, "label %d at index %d outside [0, %d)", label, i, C)
		}
	}
	return nil
}
