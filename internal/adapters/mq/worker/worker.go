// Package worker evaluates queued batch jobs and records their results.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/admission/internal/adapters/mq/queue"
	"github.com/okian/admission/internal/adapters/repository"
	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
	"github.com/okian/admission/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	poolShutdownTimeout     = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = queue.Job

// ProgramSource looks up the program a job is evaluated against.
type ProgramSource interface {
	GetProgram(ctx context.Context, id string) (model.Program, error)
}

// Evaluator runs the eligibility pipeline.
type Evaluator interface {
	Evaluate(c model.Candidate, p model.Program) (eligibility.Result, error)
}

// ResultSink stores job outcomes.
type ResultSink interface {
	RecordResult(ctx context.Context, r repository.JobResult) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	programs  ProgramSource
	evaluator Evaluator
	sink      ResultSink
	name      string
	processed *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, programs ProgramSource, evaluator Evaluator, sink ResultSink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		programs:  programs,
		evaluator: evaluator,
		sink:      sink,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job",
					logger.String("batch_id", job.BatchID),
					logger.String("job_id", job.JobID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker and waits for it to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// process evaluates one job. A failed evaluation is still recorded so the batch
// completes; only a failure to record is returned.
func (w *InMemoryWorker) process(ctx context.Context, job Job) error { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
		w.processed.Add(1)
	}()

	res := repository.JobResult{
		BatchID:     job.BatchID,
		JobID:       job.JobID,
		CandidateID: job.Candidate.ID,
		ProgramID:   job.ProgramID,
	}

	out, err := w.evaluate(ctx, job)
	if err != nil {
		res.Error = err.Error()
		metrics.RecordBatchJob("failed")
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", errorType(err))
	} else {
		res.Result = &out
		metrics.RecordBatchJob("completed")
		metrics.RecordEvaluation(string(out.ModelType), string(out.Category))
	}
	res.CompletedAt = time.Now()

	if err := w.sink.RecordResult(ctx, res); err != nil {
		metrics.RecordErrorByComponent("worker", "record_error")
		return fmt.Errorf("record job %s: %w", job.JobID, err)
	}
	return nil
}

func (w *InMemoryWorker) evaluate(ctx context.Context, job Job) (eligibility.Result, error) { //nolint:gocritic // hugeParam
	p, err := w.programs.GetProgram(ctx, job.ProgramID)
	if err != nil {
		return eligibility.Result{}, fmt.Errorf("program %s: %w", job.ProgramID, err)
	}
	evalStart := time.Now()
	out, err := w.evaluator.Evaluate(job.Candidate, p)
	metrics.RecordEvaluationLatency(float64(time.Since(evalStart).Microseconds()) / 1000)
	if err != nil {
		return eligibility.Result{}, err
	}
	return out, nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "program_not_found"
	case errors.Is(err, model.ErrInvalidInput):
		return "invalid_input"
	default:
		return "evaluation_error"
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64
	logger    logger.Logger
}

// NewPool creates a worker pool. A non-positive count uses NumCPU*2.
func NewPool(workerCount int, q Queue, programs ProgramSource, evaluator Evaluator, sink ResultSink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		w := NewInMemoryWorker(q, programs, evaluator, sink, WithName("worker-"+strconv.Itoa(i)))
		w.processed = &pool.processed
		pool.workers[i] = w
	}

	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of jobs handled since start.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Shutdown closes the queue and lets workers drain it before returning.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, shutdownCtx.Err())
	}
	p.logger.Info(ctx, "worker pool stopped", logger.Any("processed", p.Processed()))
	return nil
}
