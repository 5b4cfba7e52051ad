package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
	topResults          = 5
)

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Programs <= 0 {
		c.Programs = DefaultPrograms
	}
	if c.Candidates <= 0 {
		c.Candidates = DefaultCandidates
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * workerChannelMultiplier
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	return c
}

// Run seeds programs, submits candidate batches, waits for every job and
// verifies the ranked results. It returns the run statistics.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	config := cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting admission load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("programs", config.Programs),
		logger.Int("candidates", config.Candidates),
		logger.Int("batchSize", config.BatchSize),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout))

	client := newHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check service health
	if _, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Seed the catalogue
	gen := newGenerator(config.Seed)
	programs := generatePrograms(ctx, gen, &config)
	if err := seedPrograms(ctx, client, programs, stats); err != nil {
		return stats, err
	}
	programIDs := make([]string, len(programs))
	for i, p := range programs {
		programIDs[i] = p.ID
	}

	// Step 3: Generate and submit batches
	groups := generateCandidates(ctx, gen, &config, stats)
	subs := make([]Submission, len(groups))
	for i, g := range groups {
		subs[i] = Submission{BatchID: uuid.NewString(), Candidates: g}
	}
	submitBatches(ctx, client, &config, subs, programIDs, stats)

	// Step 4: Wait for results and verify ordering
	var errs []error
	for _, sub := range subs {
		if sub.Err != nil {
			continue
		}
		b, err := awaitBatch(ctx, client, &config, sub)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stats.JobsCompleted += b.Completed
		stats.JobsFailed += b.Failed
		if err := verifyBatch(b); err != nil {
			stats.OrderViolations++
			errs = append(errs, err)
		}
		if config.Verbose {
			displayTopResults(ctx, b, topResults)
		}
	}

	// Step 5: Probability must not fall as the test score rises
	if len(groups) > 0 && len(programIDs) > 0 {
		if err := verifyMonotonic(ctx, client, groups[0][0], programIDs[0]); err != nil {
			errs = append(errs, err)
		}
	}

	// Step 6: Save candidates
	if config.OutputFile != "" {
		if err := saveCandidates(ctx, config.OutputFile, groups); err != nil {
			log.Warn(ctx, "failed to save candidates to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.BatchesFailed > 0 {
		errs = append(errs, fmt.Errorf("%d batches were not accepted", stats.BatchesFailed))
	}
	if err := errors.Join(errs...); err != nil {
		return stats, err
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// saveCandidates writes the generated candidates as a JSON array.
func saveCandidates(ctx context.Context, filename string, groups [][]model.Candidate) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	all := make([]model.Candidate, 0)
	for _, g := range groups {
		all = append(all, g...)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal candidates: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "candidates saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, jobsPerSecond float64
	jobs := stats.JobsCompleted + stats.JobsFailed
	if jobs > 0 {
		successRate = float64(stats.JobsCompleted) / float64(jobs) * percentageMultiplier
	}
	if stats.Duration > 0 {
		jobsPerSecond = float64(jobs) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("programsSeeded", stats.ProgramsSeeded),
		logger.Int("candidatesCreated", stats.CandidatesCreated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesAccepted", stats.BatchesAccepted),
		logger.Int("batchesDuplicate", stats.BatchesDuplicate),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("jobsCompleted", stats.JobsCompleted),
		logger.Int("jobsFailed", stats.JobsFailed),
		logger.Int("orderViolations", stats.OrderViolations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("jobsPerSecond", jobsPerSecond))
}
