package layers

import (
	"math/rand/v2"
	"testing"

	"github.com/born-ml/layerkit/internal/gradcheck"
	"github.com/born-ml/layerkit/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Gradient tolerances. Linear layers are exact up to rounding.
const (
	linearTol = 1e-6
	smoothTol = 1e-5
)

func newSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, 231)
}

func randn(src rand.Source, shape ...int) *tensor.Tensor {
	return tensor.Randn(tensor.Shape(shape), src)
}

// scaled returns a*x + c elementwise.
func scaled(x *tensor.Tensor, a, c float64) *tensor.Tensor {
	return x.Map(func(v float64) float64 { return a*v + c })
}

func mustFromSlice(t *testing.T, data []float64, shape ...int) *tensor.Tensor {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

func assertGradClose(t *testing.T, name string, numeric, analytic *tensor.Tensor, tol float64) {
	t.Helper()
	rel, err := gradcheck.RelError(numeric, analytic)
	require.NoError(t, err, name)
	assert.Lessf(t, rel, tol, "%s: relative error %.3e", name, rel)
}
