package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/admission/internal/adapters/mq/queue"
	"github.com/okian/admission/internal/adapters/repository"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
	"github.com/okian/admission/pkg/metrics"
)

// Batch submission outcomes.
const (
	BatchAccepted  = "accepted"
	BatchDuplicate = "duplicate"
	BatchRejected  = "rejected"
)

// BatchRequest asks for every candidate to be evaluated against every program.
type BatchRequest struct {
	BatchID    string            `json:"batch_id,omitempty"`
	Candidates []model.Candidate `json:"candidates"`
	ProgramIDs []string          `json:"program_ids"`
}

// BatchReceipt acknowledges a batch submission.
type BatchReceipt struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Jobs      int    `json:"jobs"`
	Duplicate bool   `json:"duplicate"`
}

// SubmitBatch queues a batch for asynchronous evaluation. A batch ID seen before
// is acknowledged as a duplicate without queueing anything. When the queue cannot
// take the whole batch nothing is queued, the ID is released and ErrBackpressure
// is returned.
func (s *Service) SubmitBatch(ctx context.Context, req BatchRequest) (BatchReceipt, error) {
	const op = "service.submit_batch"

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return BatchReceipt{}, ErrNotStarted
	}

	total := len(req.Candidates) * len(req.ProgramIDs)
	switch {
	case total == 0:
		return BatchReceipt{}, s.invalid(op, model.Invalid(op, "batch", "needs at least one candidate and one program"))
	case total > s.maxBatchSize:
		return BatchReceipt{}, s.invalid(op, model.Invalid(op, "batch",
			fmt.Sprintf("%d jobs exceed the limit of %d", total, s.maxBatchSize)))
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	receipt := BatchReceipt{Status: BatchAccepted, BatchID: batchID, Jobs: total}

	if s.deduper.SeenAndRecord(ctx, batchID) {
		metrics.RecordBatch(BatchDuplicate)
		receipt.Status, receipt.Duplicate = BatchDuplicate, true
		return receipt, nil
	}
	if err := s.results.CreateBatch(ctx, batchID, total); err != nil {
		if errors.Is(err, repository.ErrBatchExists) {
			// Results outlived the deduper's memory of the ID.
			metrics.RecordBatch(BatchDuplicate)
			receipt.Status, receipt.Duplicate = BatchDuplicate, true
			return receipt, nil
		}
		s.deduper.Unrecord(ctx, batchID)
		return BatchReceipt{}, fmt.Errorf("%s: %w", op, err)
	}

	jobs := buildJobs(batchID, req, time.Now())
	if err := s.jobs.EnqueueBatch(ctx, jobs); err != nil {
		s.results.DeleteBatch(ctx, batchID)
		s.deduper.Unrecord(ctx, batchID)
		metrics.RecordBatch(BatchRejected)
		s.logger.Warn(ctx, "batch rejected",
			logger.String("batch_id", batchID),
			logger.Int("jobs", total),
			logger.Error(err),
		)
		switch {
		case errors.Is(err, queue.ErrFull):
			return BatchReceipt{}, fmt.Errorf("%s: %w", op, ErrBackpressure)
		case errors.Is(err, queue.ErrClosed):
			return BatchReceipt{}, fmt.Errorf("%s: %w", op, ErrNotStarted)
		default:
			return BatchReceipt{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	metrics.RecordBatch(BatchAccepted)
	s.logger.Info(ctx, "batch accepted",
		logger.String("batch_id", batchID),
		logger.Int("candidates", len(req.Candidates)),
		logger.Int("programs", len(req.ProgramIDs)),
	)
	return receipt, nil
}

// buildJobs expands a batch candidate-major. Job IDs are zero padded so their
// lexical order is submission order.
func buildJobs(batchID string, req BatchRequest, now time.Time) []queue.Job {
	jobs := make([]queue.Job, 0, len(req.Candidates)*len(req.ProgramIDs))
	for _, c := range req.Candidates {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		for _, programID := range req.ProgramIDs {
			jobs = append(jobs, queue.Job{
				BatchID:   batchID,
				JobID:     fmt.Sprintf("%06d", len(jobs)),
				Candidate: c,
				ProgramID: programID,
				Submitted: now,
			})
		}
	}
	return jobs
}

// BatchResults returns a batch's progress and up to limit results, best first.
func (s *Service) BatchResults(ctx context.Context, batchID string, limit int) (repository.Batch, error) {
	b, err := s.results.Batch(ctx, batchID, limit)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return repository.Batch{}, fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	case errors.Is(err, repository.ErrInvalidLimit):
		return repository.Batch{}, s.invalid("service.batch_results", model.Invalid("service.batch_results", "limit", "must be positive"))
	case err != nil:
		return repository.Batch{}, err
	}
	return b, nil
}
