package loadgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
)

// ErrVerification is returned when service output breaks an ordering guarantee.
var ErrVerification = errors.New("verification failed")

const (
	monotonicStep = 20.0
	probabilityEq = 1e-9
)

// verifyBatch checks a fully processed batch: counts add up, successful
// results come best first and failed jobs trail them.
func verifyBatch(b BatchView) error {
	if b.Completed+b.Failed != b.Total {
		return fmt.Errorf("%w: batch %s has %d completed and %d failed of %d", ErrVerification, b.ID, b.Completed, b.Failed, b.Total)
	}
	seenFailed := false
	for i, r := range b.Results {
		if r.Failed() {
			seenFailed = true
			continue
		}
		if seenFailed {
			return fmt.Errorf("%w: batch %s result %d follows a failed job", ErrVerification, b.ID, i)
		}
		if i > 0 && !b.Results[i-1].Failed() && r.Result.Probability > b.Results[i-1].Result.Probability+probabilityEq {
			return fmt.Errorf("%w: batch %s result %d (%.4f) outranks result %d (%.4f)", ErrVerification, b.ID,
				i, r.Result.Probability, i-1, b.Results[i-1].Result.Probability)
		}
	}
	return nil
}

// verifyMonotonic evaluates cand at rising test scores and checks the
// probability never drops.
func verifyMonotonic(ctx context.Context, client *HTTPClient, cand model.Candidate, programID string) error {
	prev := -1.0
	for score := 0.0; score <= testMaxScore; score += monotonicStep {
		cand.TestScore = score
		res, err := client.evaluate(ctx, cand, programID)
		if err != nil {
			return fmt.Errorf("evaluate at %.0f: %w", score, err)
		}
		if res.Probability+probabilityEq < prev {
			return fmt.Errorf("%w: probability fell from %.4f to %.4f at test score %.0f", ErrVerification, prev, res.Probability, score)
		}
		prev = res.Probability
	}
	logger.Get().Debug(ctx, "probability is monotonic in test score", logger.String("program_id", programID))
	return nil
}

// displayTopResults logs the head of a batch.
func displayTopResults(ctx context.Context, b BatchView, n int) {
	n = min(n, len(b.Results))
	for i := range n {
		r := b.Results[i]
		if r.Failed() {
			logger.Get().Info(ctx, "top result", logger.Int("rank", i+1), logger.String("candidate_id", r.CandidateID), logger.String("error", r.Error))
			continue
		}
		logger.Get().Info(ctx, "top result",
			logger.Int("rank", i+1),
			logger.String("candidate_id", r.CandidateID),
			logger.String("program_id", r.ProgramID),
			logger.Float64("probability", r.Result.Probability),
			logger.String("category", string(r.Result.Category)))
	}
}
