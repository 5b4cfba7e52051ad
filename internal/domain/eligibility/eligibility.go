// Package eligibility runs the whole estimate for one candidate and one program:
// normalization, composite score, probability and rationale.
package eligibility

import (
	"time"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/probability"
	"github.com/okian/admission/internal/domain/scoring"
	"github.com/okian/admission/internal/domain/types"
)

// DataQuality describes how much the program history behind a result can be trusted.
type DataQuality struct {
	CutoffConfidence    model.DataConfidence `json:"cutoff_confidence"`
	HistoricalDataYears int                  `json:"historical_data_years,omitempty"`
	LastUpdated         *time.Time           `json:"last_updated,omitempty"`
}

// Result is the evaluation of one candidate against one program.
type Result struct {
	ProgramID          string          `json:"program_id"`
	CompositeScore     float64         `json:"composite_score"`
	Scores             scoring.Result  `json:"scores"`
	Probability        float64         `json:"probability"`
	ConfidenceInterval [2]float64      `json:"confidence_interval"`
	Category           types.Category  `json:"category"`
	ModelType          types.ModelType `json:"model_type"`
	Features           types.Features  `json:"features"`
	Rationale          string          `json:"rationale"`
	DataQuality        DataQuality     `json:"data_quality"`
}

// Evaluator combines a Scorer and an Estimator. Both are read-only after
// construction so an Evaluator may be shared between goroutines.
type Evaluator struct {
	scorer    *scoring.Scorer
	estimator *probability.Estimator
}

// New returns an Evaluator. Nil arguments fall back to default components.
func New(scorer *scoring.Scorer, estimator *probability.Estimator) *Evaluator {
	if scorer == nil {
		scorer = scoring.NewScorer()
	}
	if estimator == nil {
		estimator = probability.NewEstimator()
	}
	return &Evaluator{scorer: scorer, estimator: estimator}
}

// Scorer returns the scorer in use.
func (e *Evaluator) Scorer() *scoring.Scorer { return e.scorer }

// Estimator returns the estimator in use.
func (e *Evaluator) Estimator() *probability.Estimator { return e.estimator }

// Evaluate scores the candidate and estimates admission into the program.
func (e *Evaluator) Evaluate(c model.Candidate, p model.Program) (Result, error) {
	scores, err := e.scorer.Score(scoring.Input{
		TestScore:      c.TestScore,
		Grades:         c.Grades,
		SecondaryScore: c.SecondaryScore,
	})
	if err != nil {
		return Result{}, err
	}

	est, err := e.estimator.Estimate(scores.Composite, p.CutoffHistory)
	if err != nil {
		return Result{}, err
	}

	prob := est.Probability
	rationale := probability.Rationale(probability.RationaleInput{
		Composite:   scores.Composite,
		TestScore:   c.TestScore,
		GradeScore:  scores.NormalizedGrades,
		ProgramName: p.Name,
		Institution: p.Institution,
		Series:      p.CutoffHistory,
		Probability: &prob,
		Category:    est.Category,
	})

	return Result{
		ProgramID:          p.ID,
		CompositeScore:     scores.Composite,
		Scores:             scores,
		Probability:        est.Probability,
		ConfidenceInterval: est.ConfidenceInterval,
		Category:           est.Category,
		ModelType:          est.ModelType,
		Features:           est.Features,
		Rationale:          rationale,
		DataQuality:        dataQuality(p),
	}, nil
}

func dataQuality(p model.Program) DataQuality {
	q := DataQuality{CutoffConfidence: model.ConfidenceUnverified, LastUpdated: p.LastVerifiedAt}
	usable := p.CutoffHistory.Usable()
	q.HistoricalDataYears = len(usable)
	if len(usable) > 0 {
		if c := usable.SortedDesc()[0].Confidence; c.Valid() {
			q.CutoffConfidence = c
		}
	}
	return q
}
