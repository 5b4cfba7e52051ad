// Package config defines service configuration and its defaults.
//
// Keys are flat and snake_case so the same name works in YAML and, upper-cased
// with the ADMISSION_ prefix, as an environment variable.
package config

import (
	"runtime"
	"strings"

	"github.com/okian/admission/internal/domain/scoring"
)

// Storage drivers accepted by db_driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`
	// CORSOrigins is a comma separated list of allowed origins.
	CORSOrigins string `koanf:"cors_origins"`

	// QueueSize bounds the in-memory batch job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of batch workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets how many batch IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxBatchSize caps candidates × programs per batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// DBDriver selects the program store: memory, sqlite or postgres.
	DBDriver string `koanf:"db_driver"`
	// DBDSN is the driver DSN; empty selects the driver default.
	DBDSN string `koanf:"db_dsn"`

	// TestMaxScore is the native maximum of the standardized test.
	TestMaxScore float64 `koanf:"test_max_score"`
	// Composite weights.
	WeightAlpha float64 `koanf:"weight_alpha"`
	WeightBeta  float64 `koanf:"weight_beta"`
	WeightGamma float64 `koanf:"weight_gamma"`

	// LogisticScale is the steepness of the probability curve in composite points.
	LogisticScale float64 `koanf:"logistic_scale"`
	// IntervalMargin is the ± half width of computed probability intervals.
	IntervalMargin float64 `koanf:"interval_margin"`
	// ForecastYears is the default forecast horizon of the trends endpoint.
	ForecastYears int `koanf:"forecast_years"`
}

// New returns a Config populated with defaults.
func New() *Config {
	w := scoring.DefaultWeights()
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":9080",
		CORSOrigins:    "*",
		QueueSize:      10_000,
		WorkerCount:    runtime.NumCPU() * 2,
		DedupeSize:     50_000,
		MaxBatchSize:   1_000,
		DBDriver:       DriverMemory,
		TestMaxScore:   scoring.DefaultTestMaxScore,
		WeightAlpha:    w.Alpha,
		WeightBeta:     w.Beta,
		WeightGamma:    w.Gamma,
		LogisticScale:  10,
		IntervalMargin: 0.15,
		ForecastYears:  3,
	}
}

// Weights returns the composite weights as a scoring.Weights.
func (c *Config) Weights() scoring.Weights {
	return scoring.Weights{Alpha: c.WeightAlpha, Beta: c.WeightBeta, Gamma: c.WeightGamma}
}

// AllowedOrigins splits CORSOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
