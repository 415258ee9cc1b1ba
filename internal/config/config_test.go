package config

import (
	"testing"

	"ndsphere/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"NDSPHERE_SEED", "SWEEP_DIMS", "SWEEP_RADIUS", "SWEEP_MIN_EXP", "SWEEP_MAX_EXP",
		"SWEEP_REPEATS", "SWEEP_WORKERS", "SWEEP_EXEC", "SWEEP_OUTPUT_DIR", "SWEEP_DETAIL_DIM", "SWEEP_EXCEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Nil(t, cfg.Estimator.Seed)
	assert.Equal(t, []int{10, 5, 3}, cfg.Sweep.Dims)
	assert.Equal(t, 1.0, cfg.Sweep.Radius)
	assert.Equal(t, 6, cfg.Sweep.MinExp)
	assert.Equal(t, 24, cfg.Sweep.MaxExp)
	assert.Equal(t, 1, cfg.Sweep.Repeats)
	assert.Equal(t, 1, cfg.Sweep.Workers)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.Equal(t, 10, cfg.Output.DetailDim)
	assert.False(t, cfg.Output.Excel)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NDSPHERE_SEED", "12345")
	t.Setenv("SWEEP_DIMS", "2, 4 ,8")
	t.Setenv("SWEEP_RADIUS", "0.5")
	t.Setenv("SWEEP_MAX_EXP", "12")
	t.Setenv("SWEEP_WORKERS", "3")
	t.Setenv("SWEEP_EXCEL", "true")

	cfg, err := Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Estimator.Seed)
	assert.Equal(t, uint64(12345), *cfg.Estimator.Seed)
	assert.Equal(t, []int{2, 4, 8}, cfg.Sweep.Dims)
	assert.Equal(t, 0.5, cfg.Sweep.Radius)
	assert.Equal(t, 12, cfg.Sweep.MaxExp)
	assert.Equal(t, 3, cfg.Sweep.Workers)
	assert.True(t, cfg.Output.Excel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"NDSPHERE_SEED", "-4"},
		{"SWEEP_DIMS", "3,x"},
		{"SWEEP_DIMS", "0"},
		{"SWEEP_RADIUS", "-1"},
		{"SWEEP_MIN_EXP", "0"},
		{"SWEEP_MAX_EXP", "3"},
		{"SWEEP_REPEATS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestParseDims(t *testing.T) {
	dims, err := ParseDims("10,5,3,")
	require.NoError(t, err)
	assert.Equal(t, []int{10, 5, 3}, dims)

	_, err = ParseDims(" , ")
	assert.Error(t, err)
}

func TestLoadEstimatorIgnoresSweepSettings(t *testing.T) {
	clearEnv(t)
	t.Setenv("SWEEP_DIMS", "not,a,list")
	t.Setenv("NDSPHERE_SEED", "9")

	cfg, err := LoadEstimator()
	require.NoError(t, err)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, uint64(9), *cfg.Seed)
}
