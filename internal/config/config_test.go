package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/born-ml/layerkit/internal/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
seed: 7
workers: 2
trials: 3
tolerance: 1e-6
checks: [affine, conv]
batchnorm:
  eps: 1e-4
conv:
  stride: 1
  pad: 0
  height: 6
  width: 6
  kernel: 3
pool:
  pool_height: 3
  pool_width: 3
  stride: 3
  height: 6
  width: 9
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 3, cfg.Trials)
	assert.Equal(t, 1e-6, cfg.Tolerance)
	assert.Equal(t, []string{"affine", "conv"}, cfg.Checks)
	assert.Equal(t, 1e-4, cfg.BatchNorm.Eps)
	assert.Equal(t, layers.ConvParam{Stride: 1, Pad: 0}, cfg.Conv.ConvParam)
	assert.Equal(t, 6, cfg.Conv.Height)
	assert.Equal(t, layers.PoolParam{PoolHeight: 3, PoolWidth: 3, Stride: 3}, cfg.Pool.PoolParam)

	// Unset keys keep their defaults.
	def := Default()
	assert.Equal(t, def.Step, cfg.Step)
	assert.Equal(t, def.BatchNorm.Momentum, cfg.BatchNorm.Momentum)
	assert.Equal(t, def.Conv.Filters, cfg.Conv.Filters)
	assert.Equal(t, def.Dropout, cfg.Dropout)
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"unknown key", "sed: 1\n", "field sed not found"},
		{"bad type", "workers: many\n", "parse config"},
		{"zero workers", "workers: 0\n", "workers must be > 0"},
		{"dropout p", "dropout:\n  p: 1\n", "dropout.p"},
		{"momentum", "batchnorm:\n  momentum: 2\n", "batchnorm.momentum"},
		{"conv tiling", "conv:\n  stride: 3\n", "conv"},
		{"pool window", "pool:\n  pool_height: 5\n", "pool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "open config"))
}

func TestValidate_GeometryErrorsWrapLayerSentinel(t *testing.T) {
	cfg := Default()
	cfg.Conv.Stride = 0
	assert.ErrorIs(t, cfg.Validate(), layers.ErrInvalidConfig)

	cfg = Default()
	cfg.Pool.Stride = 3
	assert.ErrorIs(t, cfg.Validate(), layers.ErrInvalidConfig)

	var nilCfg *Suite
	assert.Error(t, nilCfg.Validate())
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{})
	assert.Equal(t, Default(), cfg)

	cfg.ApplyOverrides(Overrides{
		Seed:      99,
		Workers:   8,
		Tolerance: 1e-3,
		Checks:    []string{"relu"},
	})
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 1e-3, cfg.Tolerance)
	assert.Equal(t, []string{"relu"}, cfg.Checks)
}
