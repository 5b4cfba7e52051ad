package config

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "ADMISSION_"
	EnvFile   = "ADMISSION_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if ADMISSION_CONFIG is set
//  3. env (prefix ADMISSION_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ADMISSION_QUEUE_SIZE -> queue_size. Keys are flat so underscores are kept.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the service cannot start without. Weight
// configurations are checked here, at the boundary, rather than per call.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Addr == "" {
		return invalid("addr must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	switch c.DBDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return invalid("unsupported db_driver %q", c.DBDriver)
	}
	if c.QueueSize <= 0 {
		return invalid("queue_size must be positive")
	}
	if c.WorkerCount <= 0 {
		return invalid("worker_count must be positive")
	}
	if c.MaxBatchSize <= 0 {
		return invalid("max_batch_size must be positive")
	}
	if c.ForecastYears < 0 {
		return invalid("forecast_years must not be negative")
	}
	if !(c.TestMaxScore > 0) || math.IsInf(c.TestMaxScore, 0) {
		return invalid("test_max_score must be positive")
	}
	if !(c.LogisticScale > 0) || math.IsInf(c.LogisticScale, 0) {
		return invalid("logistic_scale must be positive")
	}
	if !(c.IntervalMargin >= 0 && c.IntervalMargin <= 1) {
		return invalid("interval_margin must be within [0, 1]")
	}

	w := c.Weights()
	for name, v := range map[string]float64{"weight_alpha": w.Alpha, "weight_beta": w.Beta, "weight_gamma": w.Gamma} {
		if !(v >= 0) || math.IsInf(v, 0) {
			return invalid("%s must be a non-negative number", name)
		}
	}
	if w.Gamma > 0 && w.Sum() > 1+1e-9 {
		return invalid("weights must sum to at most 1 when weight_gamma is set, got %g", w.Sum())
	}
	return nil
}
