// Package repository persists the program catalogue and batch evaluation results.
package repository

import (
	"context"
	"time"

	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/model"
)

// ProgramStore provides read/write access to programs and their cutoff history.
type ProgramStore interface {
	// GetProgram returns ErrNotFound if id is unknown.
	GetProgram(ctx context.Context, id string) (model.Program, error)
	// PutProgram inserts or replaces a program.
	PutProgram(ctx context.Context, p model.Program) error
	// ListPrograms returns every program ordered by name, then ID.
	ListPrograms(ctx context.Context) ([]model.Program, error)
	// CountPrograms returns the catalogue size.
	CountPrograms(ctx context.Context) (int, error)
	Close() error
}

// JobResult is the outcome of one batch job. Exactly one of Result and Error is set.
type JobResult struct {
	BatchID     string              `json:"batch_id"`
	JobID       string              `json:"job_id"`
	CandidateID string              `json:"candidate_id"`
	ProgramID   string              `json:"program_id"`
	Result      *eligibility.Result `json:"result,omitempty"`
	Error       string              `json:"error,omitempty"`
	CompletedAt time.Time           `json:"completed_at"`
}

// Failed reports whether the job produced no result.
func (r JobResult) Failed() bool { return r.Result == nil }

// Batch summarises a submitted batch and carries its best results.
type Batch struct {
	ID          string      `json:"batch_id"`
	Total       int         `json:"total"`
	Completed   int         `json:"completed"`
	Failed      int         `json:"failed"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Results     []JobResult `json:"results"`
}

// Done reports whether every job of the batch has finished.
func (b Batch) Done() bool { return b.Completed+b.Failed >= b.Total }

// ResultStore tracks batches and their job results.
type ResultStore interface {
	// CreateBatch registers a batch of total jobs. It returns ErrBatchExists for a known id.
	CreateBatch(ctx context.Context, id string, total int) error
	// DeleteBatch forgets a batch and its results.
	DeleteBatch(ctx context.Context, id string)
	// RecordResult stores a job outcome. It returns ErrNotFound for an unknown batch.
	RecordResult(ctx context.Context, r JobResult) error
	// Batch returns the batch with up to limit results ordered by probability
	// desc, then job ID asc. Failed jobs sort last.
	Batch(ctx context.Context, id string, limit int) (Batch, error)
	// CountBatches returns the number of retained batches.
	CountBatches(ctx context.Context) int
}
