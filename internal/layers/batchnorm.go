package layers

import (
	"math"

	"github.com/born-ml/layerkit/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Batch normalization defaults.
const (
	DefaultBatchNormEps      = 1e-5
	DefaultBatchNormMomentum = 0.9
)

// BatchNormParam configures a batch normalization call and carries the
// running statistics between calls.
//
// RunningMean and RunningVar are owned by the caller. In Train mode they are
// updated in place, and allocated as zeros of length D (and stored back into
// the param) when nil. In Test mode they are only read; nil means zeros.
//
// A zero Eps selects DefaultBatchNormEps. Momentum is used as given, so a
// zero Momentum discards the previous running statistics on every call;
// NewBatchNormParam fills in DefaultBatchNormMomentum.
type BatchNormParam struct {
	Mode        Mode           `yaml:"mode"`
	Eps         float64        `yaml:"eps"`
	Momentum    float64        `yaml:"momentum"`
	RunningMean *tensor.Tensor `yaml:"-"`
	RunningVar  *tensor.Tensor `yaml:"-"`
}

// NewBatchNormParam returns a param with default eps and momentum and no
// running statistics yet.
func NewBatchNormParam(mode Mode) *BatchNormParam {
	return &BatchNormParam{
		Mode:     mode,
		Eps:      DefaultBatchNormEps,
		Momentum: DefaultBatchNormMomentum,
	}
}

func (p *BatchNormParam) eps() float64 {
	if p.Eps == 0 {
		return DefaultBatchNormEps
	}
	return p.Eps
}

// BatchNormCache holds every intermediate of the training-mode forward pass.
type BatchNormCache struct {
	x        *tensor.Tensor // [N, D]
	n        int
	mean     []float64      // [D]
	xMean    *tensor.Tensor // x - mean
	xMeanSq  *tensor.Tensor // (x - mean)²
	variance []float64      // [D], biased
	std      []float64      // sqrt(variance + eps)
	xHat     *tensor.Tensor // normalized input
	gamma    *tensor.Tensor
	beta     *tensor.Tensor
	eps      float64
}

// BatchNormForward normalizes each feature column of x.
//
// Shapes:
//   - x: [N, D]
//   - gamma, beta: [D]
//   - out: [N, D]
//
// Train mode normalizes with the biased batch statistics and folds them into
// the running statistics:
//
//	running = momentum*running + (1-momentum)*batch
//
// Test mode normalizes with the running statistics and returns a nil cache.
func BatchNormForward(x, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *BatchNormCache, error) {
	const op = "batchnorm forward"

	if param == nil {
		return nil, nil, configError(op, "nil param")
	}
	if err := checkMode(op, param.Mode); err != nil {
		return nil, nil, err
	}
	if x.Rank() != 2 {
		return nil, nil, shapeError(op, "x must be 2D [N,D], got %v", x.Shape())
	}
	D := x.Dim(1)
	if err := checkVector(op, "gamma", gamma, D); err != nil {
		return nil, nil, err
	}
	if err := checkVector(op, "beta", beta, D); err != nil {
		return nil, nil, err
	}
	if param.RunningMean != nil {
		if err := checkVector(op, "running mean", param.RunningMean, D); err != nil {
			return nil, nil, err
		}
	}
	if param.RunningVar != nil {
		if err := checkVector(op, "running var", param.RunningVar, D); err != nil {
			return nil, nil, err
		}
	}

	if param.Mode == Test {
		return batchNormTest(x, gamma, beta, param), nil, nil
	}
	out, cache := batchNormTrain(x, gamma, beta, param)
	return out, cache, nil
}

func batchNormTrain(x, gamma, beta *tensor.Tensor, param *BatchNormParam) (*tensor.Tensor, *BatchNormCache) {
	N, D := x.Dim(0), x.Dim(1)
	eps := param.eps()
	xd := x.Data()

	mean := make([]float64, D)
	for i := 0; i < N; i++ {
		floats.Add(mean, xd[i*D:(i+1)*D])
	}
	floats.Scale(1/float64(N), mean)

	xMean := tensor.ZerosLike(x)
	xMeanSq := tensor.ZerosLike(x)
	xm, xsq := xMean.Data(), xMeanSq.Data()
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			v := xd[k] - mean[j]
			xm[k] = v
			xsq[k] = v * v
		}
	}

	variance := make([]float64, D)
	for i := 0; i < N; i++ {
		floats.Add(variance, xsq[i*D:(i+1)*D])
	}
	floats.Scale(1/float64(N), variance)

	std := make([]float64, D)
	for j := range std {
		std[j] = math.Sqrt(variance[j] + eps)
	}

	xHat := tensor.ZerosLike(x)
	out := tensor.ZerosLike(x)
	xh, od := xHat.Data(), out.Data()
	g, b := gamma.Data(), beta.Data()
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			xh[k] = xm[k] / std[j]
			od[k] = g[j]*xh[k] + b[j]
		}
	}

	if param.RunningMean == nil {
		param.RunningMean = tensor.Zeros(tensor.Shape{D})
	}
	if param.RunningVar == nil {
		param.RunningVar = tensor.Zeros(tensor.Shape{D})
	}
	momentum := param.Momentum
	rm, rv := param.RunningMean.Data(), param.RunningVar.Data()
	for j := 0; j < D; j++ {
		rm[j] = momentum*rm[j] + (1-momentum)*mean[j]
		rv[j] = momentum*rv[j] + (1-momentum)*variance[j]
	}

	return out, &BatchNormCache{
		x:        x,
		n:        N,
		mean:     mean,
		xMean:    xMean,
		xMeanSq:  xMeanSq,
		variance: variance,
		std:      std,
		xHat:     xHat,
		gamma:    gamma,
		beta:     beta,
		eps:      eps,
	}
}

func batchNormTest(x, gamma, beta *tensor.Tensor, param *BatchNormParam) *tensor.Tensor {
	N, D := x.Dim(0), x.Dim(1)
	eps := param.eps()

	rm := make([]float64, D)
	rv := make([]float64, D)
	if param.RunningMean != nil {
		copy(rm, param.RunningMean.Data())
	}
	if param.RunningVar != nil {
		copy(rv, param.RunningVar.Data())
	}

	out := tensor.ZerosLike(x)
	xd, od := x.Data(), out.Data()
	g, b := gamma.Data(), beta.Data()
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			od[k] = g[j]*(xd[k]-rm[j])/math.Sqrt(rv[j]+eps) + b[j]
		}
	}
	return out
}

// BatchNormBackward backpropagates through the training-mode computation
// graph one node at a time:
//
//	mean → centre → square → variance → std → normalize → scale/shift
//
// dx collects the direct path through the centred input plus the
// contributions through the variance and the mean.
func BatchNormBackward(dout *tensor.Tensor, cache *BatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error) {
	const op = "batchnorm backward"

	if err := checkBatchNormGrad(op, dout, cache); err != nil {
		return nil, nil, nil, err
	}

	N, D := cache.n, cache.x.Dim(1)
	dgamma, dbeta = batchNormParamGrads(dout, cache)

	g := cache.gamma.Data()
	dd := dout.Data()
	xm := cache.xMean.Data()

	// Scale: dxHat = dout * gamma.
	dxHat := make([]float64, N*D)
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			dxHat[k] = dd[k] * g[j]
		}
	}

	// Normalize: xHat = xMean / std.
	dxMean := make([]float64, N*D)
	dStd := make([]float64, D)
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			dxMean[k] = dxHat[k] / cache.std[j]
			dStd[j] += dxHat[k] * -xm[k] / (cache.std[j] * cache.std[j])
		}
	}

	// std = sqrt(variance + eps).
	dVar := make([]float64, D)
	for j := range dVar {
		dVar[j] = dStd[j] * 0.5 / math.Sqrt(cache.variance[j]+cache.eps)
	}

	// variance = mean over N of xMeanSq, xMeanSq = xMean².
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			dxMeanSq := dVar[j] / float64(N)
			dxMean[k] += dxMeanSq * 2 * xm[k]
		}
	}

	// xMean = x - mean.
	dMean := make([]float64, D)
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			dMean[j] -= dxMean[i*D+j]
		}
	}

	dx = tensor.ZerosLike(cache.x)
	dxd := dx.Data()
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			dxd[k] = dxMean[k] + dMean[j]/float64(N)
		}
	}

	return dx, dgamma, dbeta, nil
}

// BatchNormBackwardAlt computes the same gradients as BatchNormBackward from
// the simplified closed form
//
//	dx = gamma / (N * sqrt(var+eps)) * (N*dout - Σdout - xMean/(var+eps) * Σ(dout*xMean))
//
// It accepts the same cache and returns matching results within floating
// point tolerance.
func BatchNormBackwardAlt(dout *tensor.Tensor, cache *BatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error) {
	const op = "batchnorm backward alt"

	if err := checkBatchNormGrad(op, dout, cache); err != nil {
		return nil, nil, nil, err
	}

	N, D := cache.n, cache.x.Dim(1)
	dgamma, dbeta = batchNormParamGrads(dout, cache)

	g := cache.gamma.Data()
	dd := dout.Data()
	xm := cache.xMean.Data()

	sumDoutXMean := make([]float64, D)
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			sumDoutXMean[j] += dd[k] * xm[k]
		}
	}
	sumDout := dbeta.Data()

	dx = tensor.ZerosLike(cache.x)
	dxd := dx.Data()
	n := float64(N)
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			ve := cache.variance[j] + cache.eps
			dxd[k] = g[j] / (n * math.Sqrt(ve)) * (n*dd[k] - sumDout[j] - xm[k]/ve*sumDoutXMean[j])
		}
	}

	return dx, dgamma, dbeta, nil
}

// batchNormParamGrads returns dgamma = Σ dout*xHat and dbeta = Σ dout.
func batchNormParamGrads(dout *tensor.Tensor, cache *BatchNormCache) (dgamma, dbeta *tensor.Tensor) {
	N, D := cache.n, cache.x.Dim(1)
	dgamma = tensor.Zeros(tensor.Shape{D})
	dbeta = tensor.Zeros(tensor.Shape{D})
	dg, db := dgamma.Data(), dbeta.Data()
	dd, xh := dout.Data(), cache.xHat.Data()
	for i := 0; i < N; i++ {
		for j := 0; j < D; j++ {
			k := i*D + j
			dg[j] += dd[k] * xh[k]
			db[j] += dd[k]
		}
	}
	return dgamma, dbeta
}

func checkBatchNormGrad(op string, dout *tensor.Tensor, cache *BatchNormCache) error {
	if cache == nil {
		return cacheError(op)
	}
	if !dout.Shape().Equal(cache.x.Shape()) {
		return shapeError(op, "dout %v, cached input %v", dout.Shape(), cache.x.Shape())
	}
	return nil
}

func checkVector(op, name string, t *tensor.Tensor, n int) error {
	if t == nil {
		return shapeError(op, "%s is nil", name)
	}
	if !t.Shape().Equal(tensor.Shape{n}) {
		return shapeError(op, "%s %v, want [%d]", name, t.Shape(), n)
	}
	return nil
}
