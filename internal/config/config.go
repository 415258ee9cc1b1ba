package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"ndsphere/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Estimator EstimatorConfig
	Sweep     SweepConfig `validate:"required"`
	Output    OutputConfig
}

// EstimatorConfig holds random source settings
type EstimatorConfig struct {
	// Seed is nil when every call should draw fresh randomness.
	Seed *uint64
}

// SweepConfig holds convergence sweep settings
type SweepConfig struct {
	Dims    []int   `validate:"required"`
	Radius  float64 `validate:"required"`
	MinExp  int
	MaxExp  int
	Repeats int
	Workers int
	// Exec, when set, is an ndsphere binary run once per point.
	Exec string
}

// OutputConfig holds artifact locations
type OutputConfig struct {
	Dir       string
	DetailDim int
	Excel     bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	estimatorConfig, err := loadEstimatorConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load estimator configuration")
	}
	config.Estimator = *estimatorConfig

	sweepConfig, err := loadSweepConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load sweep configuration")
	}
	config.Sweep = *sweepConfig

	config.Output = *loadOutputConfig()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// LoadEstimator reads only the estimator settings, for tools that never
// sweep.
func LoadEstimator() (*EstimatorConfig, error) {
	cfg, err := loadEstimatorConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load estimator configuration")
	}
	return cfg, nil
}

func loadEstimatorConfig() (*EstimatorConfig, error) {
	raw := os.Getenv("NDSPHERE_SEED")
	if raw == "" {
		return &EstimatorConfig{}, nil
	}
	seed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("NDSPHERE_SEED must be an unsigned integer, got %q", raw))
	}
	return &EstimatorConfig{Seed: &seed}, nil
}

func loadSweepConfig() (*SweepConfig, error) {
	dims, err := ParseDims(getEnvOrDefault("SWEEP_DIMS", "10,5,3"))
	if err != nil {
		return nil, err
	}

	return &SweepConfig{
		Dims:    dims,
		Radius:  getEnvFloatOrDefault("SWEEP_RADIUS", 1.0),
		MinExp:  getEnvIntOrDefault("SWEEP_MIN_EXP", 6),
		MaxExp:  getEnvIntOrDefault("SWEEP_MAX_EXP", 24),
		Repeats: getEnvIntOrDefault("SWEEP_REPEATS", 1),
		Workers: getEnvIntOrDefault("SWEEP_WORKERS", 1),
		Exec:    getEnvOrDefault("SWEEP_EXEC", ""),
	}, nil
}

func loadOutputConfig() *OutputConfig {
	return &OutputConfig{
		Dir:       getEnvOrDefault("SWEEP_OUTPUT_DIR", "."),
		DetailDim: getEnvIntOrDefault("SWEEP_DETAIL_DIM", 10),
		Excel:     getEnvBoolOrDefault("SWEEP_EXCEL", false),
	}
}

// Validate checks cross-field constraints. It is exported so CLI flag
// overrides can be re-validated.
func (c *Config) Validate() error {
	if len(c.Sweep.Dims) == 0 {
		return errors.ConfigInvalid("at least one sweep dimension is required")
	}
	for _, d := range c.Sweep.Dims {
		if d < 1 {
			return errors.ConfigInvalid(fmt.Sprintf("sweep dimension must be >= 1, got %d", d))
		}
	}
	if !(c.Sweep.Radius > 0) {
		return errors.ConfigInvalid("sweep radius must be positive")
	}
	if c.Sweep.MinExp < 1 {
		return errors.ConfigInvalid("SWEEP_MIN_EXP must be >= 1 (N = 2^k needs N >= 2)")
	}
	if c.Sweep.MaxExp < c.Sweep.MinExp {
		return errors.ConfigInvalid("SWEEP_MAX_EXP must be >= SWEEP_MIN_EXP")
	}
	if c.Sweep.MaxExp > 40 {
		return errors.ConfigInvalid("SWEEP_MAX_EXP must be <= 40")
	}
	if c.Sweep.Repeats < 1 {
		return errors.ConfigInvalid("SWEEP_REPEATS must be >= 1")
	}
	if c.Sweep.Workers < 1 {
		return errors.ConfigInvalid("SWEEP_WORKERS must be >= 1")
	}
	if c.Output.Dir == "" {
		return errors.ConfigInvalid("output directory is required")
	}
	return nil
}

// ParseDims parses a comma separated list of dimensions such as "10,5,3".
func ParseDims(s string) ([]int, error) {
	var dims []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("invalid dimension %q", part))
		}
		dims = append(dims, d)
	}
	if len(dims) == 0 {
		return nil, errors.ConfigInvalid("dimension list is empty")
	}
	return dims, nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
