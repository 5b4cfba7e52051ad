// Package scoring turns a candidate's raw scores into the normalized scores and
// the weighted composite used by the probability estimator.
package scoring

import "github.com/okian/admission/internal/domain/model"

// Default exam scales.
const (
	DefaultTestMaxScore      = 400
	DefaultSecondaryMaxScore = 100
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the composite weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		s.weights = w
	}
}

// WithPointTable overrides the grade point table.
func WithPointTable(table PointTable) Option {
	return func(s *Scorer) {
		if len(table) > 0 {
			s.points = make(PointTable, len(table))
			for g, v := range table {
				s.points[g] = v
			}
		}
	}
}

// WithTestMaxScore sets the native maximum of the standardized test.
func WithTestMaxScore(maxScore float64) Option {
	return func(s *Scorer) {
		if maxScore > 0 {
			s.testMax = maxScore
		}
	}
}

// WithSecondaryMaxScore sets the native maximum of the secondary test.
func WithSecondaryMaxScore(maxScore float64) Option {
	return func(s *Scorer) {
		if maxScore > 0 {
			s.secondaryMax = maxScore
		}
	}
}

// Input is a candidate's raw scores.
type Input struct {
	TestScore      float64
	Grades         model.GradeRecord
	SecondaryScore *float64
}

// Result carries the normalized scores and their composite.
type Result struct {
	NormalizedTest      float64  `json:"normalized_test"`
	NormalizedGrades    float64  `json:"normalized_grades"`
	NormalizedSecondary *float64 `json:"normalized_secondary,omitempty"`
	Composite           float64  `json:"composite_score"`
}

// Scorer computes a composite score from raw inputs. Safe for concurrent use.
type Scorer struct {
	weights      Weights
	points       PointTable
	testMax      float64
	secondaryMax float64
}

// NewScorer creates a scorer with default weights, point table and scales.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		weights:      DefaultWeights(),
		points:       DefaultPointTable(),
		testMax:      DefaultTestMaxScore,
		secondaryMax: DefaultSecondaryMaxScore,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the configured composite weights.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// TestMaxScore returns the configured standardized-test maximum.
func (s *Scorer) TestMaxScore() float64 {
	return s.testMax
}

// Score normalizes in and combines the normalized scores.
func (s *Scorer) Score(in Input) (Result, error) {
	test, err := NormalizeTestScore(in.TestScore, s.testMax)
	if err != nil {
		return Result{}, err
	}
	grades, err := NormalizeGrades(in.Grades, s.points)
	if err != nil {
		return Result{}, err
	}

	var secondary *float64
	if in.SecondaryScore != nil {
		v, err := NormalizeTestScore(*in.SecondaryScore, s.secondaryMax)
		if err != nil {
			return Result{}, err
		}
		secondary = &v
	}

	composite, err := Composite(test, grades, secondary, s.weights)
	if err != nil {
		return Result{}, err
	}
	return Result{
		NormalizedTest:      test,
		NormalizedGrades:    grades,
		NormalizedSecondary: secondary,
		Composite:           composite,
	}, nil
}
