// Package service wires the program catalogue, the evaluator and the batch
// pipeline behind the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/admission/internal/adapters/mq/queue"
	"github.com/okian/admission/internal/adapters/mq/worker"
	"github.com/okian/admission/internal/adapters/repository"
	"github.com/okian/admission/internal/config"
	"github.com/okian/admission/internal/domain/dedupe"
	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/probability"
	"github.com/okian/admission/internal/domain/scoring"
	"github.com/okian/admission/internal/domain/trend"
	"github.com/okian/admission/pkg/logger"
	"github.com/okian/admission/pkg/metrics"
)

const (
	defaultQueueSize    = 10000
	defaultMaxBatchSize = 1000
)

// Service implements the API dependencies for the admission estimator.
type Service struct {
	mu sync.RWMutex

	// Core components
	programs  repository.ProgramStore
	results   repository.ResultStore
	evaluator *eligibility.Evaluator
	deduper   dedupe.Deduper
	jobs      queue.Queue
	pool      *worker.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	maxBatchSize  int
	forecastYears int

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many batch IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxBatchSize caps the jobs (candidates x programs) in one batch.
func WithMaxBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithForecastYears sets the default trend forecast horizon.
func WithForecastYears(years int) Option {
	return func(s *Service) {
		if years > 0 {
			s.forecastYears = years
		}
	}
}

// WithProgramStore replaces the in-memory program catalogue.
func WithProgramStore(store repository.ProgramStore) Option {
	return func(s *Service) {
		if store != nil {
			s.programs = store
		}
	}
}

// WithResultStore replaces the in-memory batch result store.
func WithResultStore(store repository.ResultStore) Option {
	return func(s *Service) {
		if store != nil {
			s.results = store
		}
	}
}

// WithEvaluator sets the eligibility pipeline.
func WithEvaluator(e *eligibility.Evaluator) Option {
	return func(s *Service) {
		if e != nil {
			s.evaluator = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// OptionsFromConfig translates the loaded configuration into service options.
func OptionsFromConfig(cfg *config.Config) []Option {
	scorer := scoring.NewScorer(
		scoring.WithWeights(cfg.Weights()),
		scoring.WithTestMaxScore(cfg.TestMaxScore),
	)
	estimator := probability.NewEstimator(
		probability.WithScale(cfg.LogisticScale),
		probability.WithMargin(cfg.IntervalMargin),
	)
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithMaxBatchSize(cfg.MaxBatchSize),
		WithForecastYears(cfg.ForecastYears),
		WithEvaluator(eligibility.New(scorer, estimator)),
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     defaultQueueSize,
		dedupeSize:    dedupe.DefaultMaxSize,
		maxBatchSize:  defaultMaxBatchSize,
		forecastYears: trend.DefaultHorizon,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.programs == nil {
		s.programs = repository.NewMemoryProgramStore()
	}
	if s.results == nil {
		s.results = repository.NewMemoryResultStore()
	}
	if s.evaluator == nil {
		s.evaluator = eligibility.New(nil, nil)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start creates the batch pipeline and starts the workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting admission service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s.programs, s.evaluator, s.results)

	// Workers outlive the request that started them; Stop cancels them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)

	if n, err := s.programs.CountPrograms(ctx); err == nil {
		metrics.UpdateProgramsTotal(n)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "admission service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains queued jobs, stops the workers and closes the program store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping admission service...")

	var errs []error
	if err := s.pool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop workers: %w", err))
	}
	s.cancel()
	if err := s.programs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close program store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "admission service stopped", logger.Any("processed", s.pool.Processed()))
	return errors.Join(errs...)
}

// Stats is a point-in-time view of the service used for monitoring.
type Stats struct {
	Started       bool   `json:"started"`
	Uptime        string `json:"uptime,omitempty"`
	WorkerCount   int    `json:"worker_count"`
	QueueCapacity int    `json:"queue_capacity"`
	QueueLength   int    `json:"queue_length"`
	DedupeSize    int64  `json:"dedupe_size"`
	Programs      int    `json:"programs"`
	Batches       int    `json:"batches"`
	JobsProcessed int64  `json:"jobs_processed"`
}

// GetStats returns service statistics and refreshes the matching gauges.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		Started:       s.started,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
		Batches:       s.results.CountBatches(ctx),
	}
	if n, err := s.programs.CountPrograms(ctx); err == nil {
		stats.Programs = n
		metrics.UpdateProgramsTotal(n)
	} else {
		s.logger.Warn(ctx, "count programs failed", logger.Error(err))
	}

	if s.started {
		stats.Uptime = time.Since(s.startedAt).Round(time.Second).String()
		stats.WorkerCount = s.pool.Size()
		stats.QueueLength = s.jobs.Len(ctx)
		stats.DedupeSize = s.deduper.Size()
		stats.JobsProcessed = s.pool.Processed()
		metrics.UpdateQueueSize(stats.QueueLength)
	}
	return stats
}
