// Package loadgen drives a running admission service with generated
// programs and candidate batches, then verifies the ranked results.
package loadgen

import (
	"time"

	"github.com/okian/admission/internal/adapters/repository"
	"github.com/okian/admission/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Programs     int           // Number of programs to seed
	Candidates   int           // Number of candidates to generate
	BatchSize    int           // Candidates per submitted batch
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	PollInterval time.Duration // Delay between batch result polls
	Seed         uint64        // Seed for the candidate generator
	OutputFile   string        // Output file for generated candidates
	Verbose      bool          // Enable verbose logging
}

// AckResponse is the service's answer to a batch submission.
type AckResponse struct {
	Status    string `json:"status"`
	BatchID   string `json:"batch_id"`
	Jobs      int    `json:"jobs"`
	Duplicate bool   `json:"duplicate"`
}

// Submission ties a generated batch to the service's acknowledgement.
type Submission struct {
	BatchID    string
	Candidates []model.Candidate
	Ack        AckResponse
	Err        error
}

// BatchView is a batch as returned by GET /batches/{id}.
type BatchView = repository.Batch

// Stats holds run statistics.
type Stats struct {
	ProgramsSeeded    int
	CandidatesCreated int
	BatchesSubmitted  int
	BatchesAccepted   int
	BatchesDuplicate  int
	BatchesFailed     int
	JobsCompleted     int
	JobsFailed        int
	OrderViolations   int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
