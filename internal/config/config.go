// Package config loads the gradient-check suite configuration.
package config

import (
	"io"
	"os"

	"github.com/born-ml/layerkit/internal/layers"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Suite captures the knobs for a gradient-check run.
type Suite struct {
	Seed      uint64   `yaml:"seed"`
	Workers   int      `yaml:"workers"`
	Trials    int      `yaml:"trials"`
	Tolerance float64  `yaml:"tolerance"`
	Step      float64  `yaml:"step"`
	Checks    []string `yaml:"checks,omitempty"` // empty runs every check

	BatchNorm BatchNorm `yaml:"batchnorm"`
	Dropout   Dropout   `yaml:"dropout"`
	Conv      Conv      `yaml:"conv"`
	Pool      Pool      `yaml:"pool"`
}

// BatchNorm configures the batch norm checks.
type BatchNorm struct {
	Eps      float64 `yaml:"eps"`
	Momentum float64 `yaml:"momentum"`
}

// Dropout configures the dropout check.
type Dropout struct {
	P float64 `yaml:"p"`
}

// Conv configures the convolution input and filter geometry.
type Conv struct {
	layers.ConvParam `yaml:",inline"`

	Batch    int `yaml:"batch"`
	Channels int `yaml:"channels"`
	Height   int `yaml:"height"`
	Width    int `yaml:"width"`
	Filters  int `yaml:"filters"`
	Kernel   int `yaml:"kernel"`
}

// Pool configures the max pooling input geometry.
type Pool struct {
	layers.PoolParam `yaml:",inline"`

	Batch    int `yaml:"batch"`
	Channels int `yaml:"channels"`
	Height   int `yaml:"height"`
	Width    int `yaml:"width"`
}

// Overrides captures CLI supplied values. Zero values leave the loaded
// configuration untouched.
type Overrides struct {
	Seed      uint64
	Workers   int
	Tolerance float64
	Checks    []string
}

// Default returns the suite used when no config file is given.
func Default() *Suite {
	return &Suite{
		Seed:      231,
		Workers:   4,
		Trials:    2,
		Tolerance: 1e-5,
		Step:      1e-5,
		BatchNorm: BatchNorm{
			Eps:      layers.DefaultBatchNormEps,
			Momentum: layers.DefaultBatchNormMomentum,
		},
		Dropout: Dropout{P: 0.3},
		Conv: Conv{
			ConvParam: layers.ConvParam{Stride: 2, Pad: 1},
			Batch:     2,
			Channels:  3,
			Height:    5,
			Width:     5,
			Filters:   2,
			Kernel:    3,
		},
		Pool: Pool{
			PoolParam: layers.PoolParam{PoolHeight: 2, PoolWidth: 2, Stride: 2},
			Batch:     2,
			Channels:  2,
			Height:    4,
			Width:     4,
		},
	}
}

// Load reads and validates a Suite from YAML. Keys missing from the file
// keep their Default values; unknown keys are rejected.
func Load(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse decodes a Suite on top of Default without validating it.
func Parse(r io.Reader) (*Suite, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Suite) ApplyOverrides(o Overrides) {
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if o.Tolerance > 0 {
		c.Tolerance = o.Tolerance
	}
	if len(o.Checks) > 0 {
		c.Checks = o.Checks
	}
}

// Validate verifies the suite is runnable.
func (c *Suite) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be > 0 (got %d)", c.Workers)
	}
	if c.Trials <= 0 {
		return errors.Errorf("trials must be > 0 (got %d)", c.Trials)
	}
	if c.Tolerance <= 0 {
		return errors.Errorf("tolerance must be > 0 (got %g)", c.Tolerance)
	}
	if c.Step <= 0 {
		return errors.Errorf("step must be > 0 (got %g)", c.Step)
	}
	if c.BatchNorm.Eps < 0 {
		return errors.Errorf("batchnorm.eps must be >= 0 (got %g)", c.BatchNorm.Eps)
	}
	if c.BatchNorm.Momentum < 0 || c.BatchNorm.Momentum > 1 {
		return errors.Errorf("batchnorm.momentum must be in [0, 1] (got %g)", c.BatchNorm.Momentum)
	}
	if c.Dropout.P < 0 || c.Dropout.P >= 1 {
		return errors.Errorf("dropout.p must be in [0, 1) (got %g)", c.Dropout.P)
	}

	conv := c.Conv
	if conv.Batch <= 0 || conv.Channels <= 0 || conv.Height <= 0 || conv.Width <= 0 || conv.Filters <= 0 || conv.Kernel <= 0 {
		return errors.New("conv: batch, channels, height, width, filters and kernel must be > 0")
	}
	if _, _, err := conv.OutputSize(conv.Height, conv.Width, conv.Kernel, conv.Kernel); err != nil {
		return errors.Wrap(err, "conv")
	}

	pool := c.Pool
	if pool.Batch <= 0 || pool.Channels <= 0 || pool.Height <= 0 || pool.Width <= 0 {
		return errors.New("pool: batch, channels, height and width must be > 0")
	}
	if _, _, err := pool.OutputSize(pool.Height, pool.Width); err != nil {
		return errors.Wrap(err, "pool")
	}
	return nil
}
