package layers

import (
	"math/rand/v2"

	"github.com/born-ml/layerkit/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// dropoutStream is the PCG stream used for seeded masks.
const dropoutStream = 0x9e3779b97f4a7c15

// DropoutParam configures inverted dropout.
//
// P is the probability of dropping each element and must lie in [0, 1).
// When Seed is set the mask is a deterministic function of the seed and the
// input shape; otherwise a fresh random source is used on every call.
type DropoutParam struct {
	P    float64 `yaml:"p"`
	Mode Mode    `yaml:"mode"`
	Seed *uint64 `yaml:"seed,omitempty"`
}

// WithSeed returns a copy of p with a deterministic seed.
func (p DropoutParam) WithSeed(seed uint64) DropoutParam {
	p.Seed = &seed
	return p
}

func (p DropoutParam) source() rand.Source {
	if p.Seed != nil {
		return rand.NewPCG(*p.Seed, dropoutStream)
	}
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// DropoutCache holds the param and, in Train mode, the keep-mask.
type DropoutCache struct {
	param DropoutParam
	mask  *tensor.Tensor // nil in Test mode
}

// Mask returns the keep-mask drawn by the forward pass (1 = kept), or nil in
// Test mode.
func (c *DropoutCache) Mask() *tensor.Tensor {
	return c.mask
}

// DropoutForward applies inverted dropout.
//
// Train mode draws an independent Bernoulli keep-mask with keep probability
// 1-p and returns x * mask / (1-p), so the expected activation is unchanged.
// Test mode returns x untouched.
func DropoutForward(x *tensor.Tensor, param DropoutParam) (*tensor.Tensor, *DropoutCache, error) {
	const op = "dropout forward"

	if err := checkMode(op, param.Mode); err != nil {
		return nil, nil, err
	}
	if param.P < 0 || param.P >= 1 {
		return nil, nil, configError(op, "p=%g must be in [0, 1)", param.P)
	}

	if param.Mode == Test {
		return x, &DropoutCache{param: param}, nil
	}

	keep := distuv.Bernoulli{P: 1 - param.P, Src: param.source()}
	mask := tensor.ZerosLike(x)
	md := mask.Data()
	for i := range md {
		md[i] = keep.Rand()
	}

	out := x.Mul(mask)
	scale := 1 / (1 - param.P)
	od := out.Data()
	for i := range od {
		od[i] *= scale
	}

	return out, &DropoutCache{param: param, mask: mask}, nil
}

// DropoutBackward returns dout * mask / (1-p) in Train mode and dout in
// Test mode.
func DropoutBackward(dout *tensor.Tensor, cache *DropoutCache) (*tensor.Tensor, error) {
	const op = "dropout backward"

	if cache == nil {
		return nil, cacheError(op)
	}
	if err := checkMode(op, cache.param.Mode); err != nil {
		return nil, err
	}

	if cache.param.Mode == Test {
		return dout, nil
	}

	if !dout.Shape().Equal(cache.mask.Shape()) {
		return nil, shapeError(op, "dout %v, mask %v", dout.Shape(), cache.mask.Shape())
	}
	dx := dout.Mul(cache.mask)
	return dx.Scale(1 / (1 - cache.param.P)), nil
}
