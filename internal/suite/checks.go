package suite

import (
	"math/rand/v2"

	"github.com/born-ml/layerkit/internal/config"
	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/internal/layers"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/pkg/errors"
)

// Env supplies random inputs and finite differences to a check.
type Env struct {
	src  rand.Source
	step float64
}

// Randn returns a standard normal tensor.
func (e *Env) Randn(shape ...int) *tensor.Tensor {
	return tensor.Randn(tensor.Shape(shape), e.src)
}

// Uint64 returns a random value, used for labels and dropout seeds.
func (e *Env) Uint64() uint64 {
	return e.src.Uint64()
}

// Labels returns n class labels in [0, classes).
func (e *Env) Labels(n, classes int) []int {
	y := make([]int, n)
	for i := range y {
		y[i] = int(e.src.Uint64() % uint64(classes))
	}
	return y
}

// Compare returns the relative error between the finite-difference gradient
// of Σ forward() ⊙ dout with respect to x and the analytic gradient.
func (e *Env) Compare(name string, forward func() *tensor.Tensor, x, dout, analytic *tensor.Tensor) (Gradient, error) {
	numeric := gradcheck.NumericalGradientArray(forward, x, dout, e.step)
	return relError(name, numeric, analytic)
}

// CompareScalar is Compare for a scalar loss.
func (e *Env) CompareScalar(name string, loss func() float64, x, analytic *tensor.Tensor) (Gradient, error) {
	numeric := gradcheck.NumericalGradient(loss, x, e.step)
	return relError(name, numeric, analytic)
}

func relError(name string, a, b *tensor.Tensor) (Gradient, error) {
	rel, err := gradcheck.RelError(a, b)
	if err != nil {
		return Gradient{}, errors.Wrap(err, name)
	}
	return Gradient{Name: name, RelError: rel}, nil
}

// target pairs a parameter with its analytic gradient.
type target struct {
	name    string
	x, grad *tensor.Tensor
}

func (e *Env) compareAll(forward func() *tensor.Tensor, dout *tensor.Tensor, targets ...target) ([]Gradient, error) {
	out := make([]Gradient, 0, len(targets))
	for _, tg := range targets {
		g, err := e.Compare(tg.name, forward, tg.x, dout, tg.grad)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// must unwraps a forward call whose inputs have already been validated by an
// identical call; only element values differ between the two.
func must[C any](out *tensor.Tensor, _ C, err error) *tensor.Tensor {
	if err != nil {
		panic(err)
	}
	return out
}

// All returns every check, configured from cfg.
func All(cfg *config.Suite) []Check {
	return []Check{
		{Name: "affine", Run: checkAffine},
		{Name: "relu", Run: checkReLU},
		{Name: "batchnorm", Run: batchNormCheck(cfg.BatchNorm, layers.BatchNormBackward)},
		{Name: "batchnorm_alt", Run: batchNormCheck(cfg.BatchNorm, layers.BatchNormBackwardAlt)},
		{Name: "batchnorm_agreement", Run: batchNormAgreement(cfg.BatchNorm)},
		{Name: "spatial_batchnorm", Run: spatialBatchNormCheck(cfg.BatchNorm)},
		{Name: "dropout", Run: dropoutCheck(cfg.Dropout)},
		{Name: "conv", Run: convCheck(cfg.Conv)},
		{Name: "max_pool", Run: poolCheck(cfg.Pool)},
		{Name: "svm", Run: checkSVM},
		{Name: "softmax", Run: checkSoftmax},
		{Name: "affine_relu", Run: checkAffineReLU},
		{Name: "affine_batchnorm_relu", Run: affineBatchNormReLUCheck(cfg.BatchNorm)},
		{Name: "conv_relu", Run: convReLUCheck(cfg.Conv)},
		{Name: "conv_relu_pool", Run: checkConvReLUPool},
	}
}

func checkAffine(e *Env) ([]Gradient, error) {
	x, w, b := e.Randn(10, 2, 3), e.Randn(6, 5), e.Randn(5)
	dout := e.Randn(10, 5)

	_, cache, err := layers.AffineForward(x, w, b)
	if err != nil {
		return nil, err
	}
	dx, dw, db, err := layers.AffineBackward(dout, cache)
	if err != nil {
		return nil, err
	}

	forward := func() *tensor.Tensor { return must(layers.AffineForward(x, w, b)) }
	return e.compareAll(forward, dout,
		target{"dx", x, dx}, target{"dw", w, dw}, target{"db", b, db})
}

func checkReLU(e *Env) ([]Gradient, error) {
	x, dout := e.Randn(10, 10), e.Randn(10, 10)

	_, cache := layers.ReLUForward(x)
	dx, err := layers.ReLUBackward(dout, cache)
	if err != nil {
		return nil, err
	}

	forward := func() *tensor.Tensor {
		out, _ := layers.ReLUForward(x)
		return out
	}
	return e.compareAll(forward, dout, target{"dx", x, dx})
}

type batchNormBackward func(*tensor.Tensor, *layers.BatchNormCache) (dx, dgamma, dbeta *tensor.Tensor, err error)

func newBatchNormParam(bn config.BatchNorm) *layers.BatchNormParam {
	return &layers.BatchNormParam{Mode: layers.Train, Eps: bn.Eps, Momentum: bn.Momentum}
}

func batchNormCheck(bn config.BatchNorm, backward batchNormBackward) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x := e.Randn(4, 5).Map(func(v float64) float64 { return 5*v + 12 })
		gamma, beta, dout := e.Randn(5), e.Randn(5), e.Randn(4, 5)

		_, cache, err := layers.BatchNormForward(x, gamma, beta, newBatchNormParam(bn))
		if err != nil {
			return nil, err
		}
		dx, dgamma, dbeta, err := backward(dout, cache)
		if err != nil {
			return nil, err
		}

		forward := func() *tensor.Tensor {
			return must(layers.BatchNormForward(x, gamma, beta, newBatchNormParam(bn)))
		}
		return e.compareAll(forward, dout,
			target{"dx", x, dx}, target{"dgamma", gamma, dgamma}, target{"dbeta", beta, dbeta})
	}
}

// batchNormAgreement compares the staged and closed-form backward passes on
// a large batch.
func batchNormAgreement(bn config.BatchNorm) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x, gamma, beta, dout := e.Randn(100, 50), e.Randn(50), e.Randn(50), e.Randn(100, 50)

		_, cache, err := layers.BatchNormForward(x, gamma, beta, newBatchNormParam(bn))
		if err != nil {
			return nil, err
		}
		dx1, dgamma1, dbeta1, err := layers.BatchNormBackward(dout, cache)
		if err != nil {
			return nil, err
		}
		dx2, dgamma2, dbeta2, err := layers.BatchNormBackwardAlt(dout, cache)
		if err != nil {
			return nil, err
		}

		out := make([]Gradient, 0, 3)
		for _, pair := range []struct {
			name string
			a, b *tensor.Tensor
		}{{"dx", dx1, dx2}, {"dgamma", dgamma1, dgamma2}, {"dbeta", dbeta1, dbeta2}} {
			g, err := relError(pair.name, pair.a, pair.b)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	}
}

func spatialBatchNormCheck(bn config.BatchNorm) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x := e.Randn(2, 3, 4, 5).Map(func(v float64) float64 { return 5*v + 12 })
		gamma, beta, dout := e.Randn(3), e.Randn(3), e.Randn(2, 3, 4, 5)

		_, cache, err := layers.SpatialBatchNormForward(x, gamma, beta, newBatchNormParam(bn))
		if err != nil {
			return nil, err
		}
		dx, dgamma, dbeta, err := layers.SpatialBatchNormBackward(dout, cache)
		if err != nil {
			return nil, err
		}

		forward := func() *tensor.Tensor {
			return must(layers.SpatialBatchNormForward(x, gamma, beta, newBatchNormParam(bn)))
		}
		return e.compareAll(forward, dout,
			target{"dx", x, dx}, target{"dgamma", gamma, dgamma}, target{"dbeta", beta, dbeta})
	}
}

func dropoutCheck(cfg config.Dropout) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x := e.Randn(10, 10).Map(func(v float64) float64 { return v + 10 })
		dout := e.Randn(10, 10)
		param := layers.DropoutParam{P: cfg.P, Mode: layers.Train}.WithSeed(e.Uint64())

		_, cache, err := layers.DropoutForward(x, param)
		if err != nil {
			return nil, err
		}
		dx, err := layers.DropoutBackward(dout, cache)
		if err != nil {
			return nil, err
		}

		forward := func() *tensor.Tensor { return must(layers.DropoutForward(x, param)) }
		return e.compareAll(forward, dout, target{"dx", x, dx})
	}
}

func convCheck(cfg config.Conv) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x := e.Randn(cfg.Batch, cfg.Channels, cfg.Height, cfg.Width)
		w := e.Randn(cfg.Filters, cfg.Channels, cfg.Kernel, cfg.Kernel)
		b := e.Randn(cfg.Filters)

		out, cache, err := layers.ConvForwardNaive(x, w, b, cfg.ConvParam)
		if err != nil {
			return nil, err
		}
		dout := e.Randn(out.Shape()...)
		dx, dw, db, err := layers.ConvBackwardNaive(dout, cache)
		if err != nil {
			return nil, err
		}

		forward := func() *tensor.Tensor { return must(layers.ConvForwardNaive(x, w, b, cfg.ConvParam)) }
		return e.compareAll(forward, dout,
			target{"dx", x, dx}, target{"dw", w, dw}, target{"db", b, db})
	}
}

func poolCheck(cfg config.Pool) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x := e.Randn(cfg.Batch, cfg.Channels, cfg.Height, cfg.Width)

		out, cache, err := layers.MaxPoolForwardNaive(x, cfg.PoolParam)
		if err != nil {
			return nil, err
		}
		dout := e.Randn(out.Shape()...)
		dx, err := layers.MaxPoolBackwardNaive(dout, cache)
		if err != nil {
			return nil, err
		}

		forward := func() *tensor.Tensor { return must(layers.MaxPoolForwardNaive(x, cfg.PoolParam)) }
		return e.compareAll(forward, dout, target{"dx", x, dx})
	}
}

func checkSVM(e *Env) ([]Gradient, error) {
	x := e.Randn(50, 10).Scale(0.001)
	y := e.Labels(50, 10)

	_, dx, err := layers.SVMLoss(x, y)
	if err != nil {
		return nil, err
	}
	loss := func() float64 {
		l, _, _ := layers.SVMLoss(x, y)
		return l
	}
	g, err := e.CompareScalar("dx", loss, x, dx)
	if err != nil {
		return nil, err
	}
	return []Gradient{g}, nil
}

func checkSoftmax(e *Env) ([]Gradient, error) {
	x := e.Randn(20, 6)
	y := e.Labels(20, 6)

	_, dx, err := layers.SoftmaxLoss(x, y)
	if err != nil {
		return nil, err
	}
	loss := func() float64 {
		l, _, _ := layers.SoftmaxLoss(x, y)
		return l
	}
	g, err := e.CompareScalar("dx", loss, x, dx)
	if err != nil {
		return nil, err
	}
	return []Gradient{g}, nil
}

func checkAffineReLU(e *Env) ([]Gradient, error) {
	x, w, b := e.Randn(2, 3, 4), e.Randn(12, 10), e.Randn(10)
	dout := e.Randn(2, 10)

	_, cache, err := layers.AffineReLUForward(x, w, b)
	if err != nil {
		return nil, err
	}
	dx, dw, db, err := layers.AffineReLUBackward(dout, cache)
	if err != nil {
		return nil, err
	}

	forward := func() *tensor.Tensor { return must(layers.AffineReLUForward(x, w, b)) }
	return e.compareAll(forward, dout,
		target{"dx", x, dx}, target{"dw", w, dw}, target{"db", b, db})
}

func affineBatchNormReLUCheck(bn config.BatchNorm) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x, w, b := e.Randn(5, 4), e.Randn(4, 6), e.Randn(6)
		gamma := e.Randn(6).Map(func(v float64) float64 { return 0.5*v + 1 })
		beta, dout := e.Randn(6), e.Randn(5, 6)

		_, cache, err := layers.AffineBatchNormReLUForward(x, w, b, gamma, beta, newBatchNormParam(bn))
		if err != nil {
			return nil, err
		}
		dx, dw, _, dgamma, dbeta, err := layers.AffineBatchNormReLUBackward(dout, cache)
		if err != nil {
			return nil, err
		}

		// db is omitted: batch norm cancels the affine bias, so both the
		// analytic and numeric gradients are rounding noise around zero.
		forward := func() *tensor.Tensor {
			return must(layers.AffineBatchNormReLUForward(x, w, b, gamma, beta, newBatchNormParam(bn)))
		}
		return e.compareAll(forward, dout,
			target{"dx", x, dx}, target{"dw", w, dw},
			target{"dgamma", gamma, dgamma}, target{"dbeta", beta, dbeta})
	}
}

func convReLUCheck(cfg config.Conv) func(*Env) ([]Gradient, error) {
	return func(e *Env) ([]Gradient, error) {
		x := e.Randn(cfg.Batch, cfg.Channels, cfg.Height, cfg.Width)
		w := e.Randn(cfg.Filters, cfg.Channels, cfg.Kernel, cfg.Kernel)
		b := e.Randn(cfg.Filters)

		out, cache, err := layers.ConvReLUForward(x, w, b, cfg.ConvParam)
		if err != nil {
			return nil, err
		}
		dout := e.Randn(out.Shape()...)
		dx, dw, db, err := layers.ConvReLUBackward(dout, cache)
		if err != nil {
			return nil, err
		}

		forward := func() *tensor.Tensor { return must(layers.ConvReLUForward(x, w, b, cfg.ConvParam)) }
		return e.compareAll(forward, dout,
			target{"dx", x, dx}, target{"dw", w, dw}, target{"db", b, db})
	}
}

func checkConvReLUPool(e *Env) ([]Gradient, error) {
	x, w, b := e.Randn(2, 3, 8, 8), e.Randn(3, 3, 3, 3), e.Randn(3)
	convParam := layers.ConvParam{Stride: 1, Pad: 1}
	poolParam := layers.PoolParam{PoolHeight: 2, PoolWidth: 2, Stride: 2}

	out, cache, err := layers.ConvReLUPoolForward(x, w, b, convParam, poolParam)
	if err != nil {
		return nil, err
	}
	dout := e.Randn(out.Shape()...)
	dx, dw, db, err := layers.ConvReLUPoolBackward(dout, cache)
	if err != nil {
		return nil, err
	}

	forward := func() *tensor.Tensor {
		return must(layers.ConvReLUPoolForward(x, w, b, convParam, poolParam))
	}
	return e.compareAll(forward, dout,
		target{"dx", x, dx}, target{"dw", w, dw}, target{"db", b, db})
}
