// Package probability turns a composite score and a program's cutoff history into
// an admission probability, a confidence interval and a category.
//
// The same logistic curve is applied whenever at least one usable cutoff exists.
// ModelType only annotates how much history backs the number: logistic with three
// or more usable years, rule-based below that.
package probability

import (
	"math"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/trend"
	"github.com/okian/admission/internal/domain/types"
)

const (
	// DefaultScale is the logistic steepness in composite points. A larger scale
	// flattens the curve so small distances from the cutoff move the probability less.
	DefaultScale = 10.0
	// DefaultMargin is the half width of an interval computed from a cutoff.
	DefaultMargin = 0.15

	// SafeThreshold and TargetThreshold split probabilities into categories.
	SafeThreshold   = 0.7
	TargetThreshold = 0.5

	// LogisticMinYears is the usable history needed for a logistic label.
	LogisticMinYears = 3
)

// Rule-based fallback used when a program has no usable cutoff.
const (
	fallbackSafeScore   = 60
	fallbackTargetScore = 50
	fallbackSafe        = 0.7
	fallbackTarget      = 0.5
	fallbackReach       = 0.3
	fallbackLow         = 0.2
	fallbackHigh        = 0.8
)

// Option configures an Estimator.
type Option func(*Estimator)

// WithScale sets the logistic steepness. Non-positive or non-finite values are ignored.
func WithScale(scale float64) Option {
	return func(e *Estimator) {
		if scale > 0 && !math.IsInf(scale, 0) {
			e.scale = scale
		}
	}
}

// WithMargin sets the interval half width. Values outside [0, 1] are ignored.
func WithMargin(margin float64) Option {
	return func(e *Estimator) {
		if margin >= 0 && margin <= 1 {
			e.margin = margin
		}
	}
}

// Estimator maps composite scores to admission probabilities. It holds only
// configuration and is safe for concurrent use.
type Estimator struct {
	scale  float64
	margin float64
}

// NewEstimator returns an Estimator with the default scale and margin.
func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{scale: DefaultScale, margin: DefaultMargin}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scale returns the logistic steepness in use.
func (e *Estimator) Scale() float64 { return e.scale }

// Margin returns the interval half width in use.
func (e *Estimator) Margin() float64 { return e.margin }

// Estimate computes the admission probability of composite against the series.
// Entries without both a year and a cutoff are ignored; if none remain the
// rule-based fallback is returned.
func (e *Estimator) Estimate(composite float64, series model.Series) (types.ProbabilityResult, error) {
	const op = "probability.estimate"
	if err := model.RequireFinite(op, "composite_score", composite); err != nil {
		return types.ProbabilityResult{}, err
	}
	if err := series.Validate(op); err != nil {
		return types.ProbabilityResult{}, err
	}

	usable := series.Usable()
	if len(usable) == 0 {
		return fallback(composite), nil
	}

	latest := usable.SortedDesc()[0]
	p := e.logistic(composite - latest.Cutoff)

	tr, err := trend.Calculate(usable)
	if err != nil {
		return types.ProbabilityResult{}, err
	}

	modelType := types.ModelRuleBased
	if len(usable) >= LogisticMinYears {
		modelType = types.ModelLogistic
	}
	return types.ProbabilityResult{
		Probability:        p,
		ConfidenceInterval: [2]float64{math.Max(0, p-e.margin), math.Min(1, p+e.margin)},
		Category:           Categorize(p),
		ModelType:          modelType,
		Features: types.Features{
			CompositeScore: composite,
			YearsOfData:    len(usable),
			LatestCutoff:   latest.Cutoff,
			Trend:          tr.Direction,
		},
	}, nil
}

func (e *Estimator) logistic(difference float64) float64 {
	p := 1 / (1 + math.Exp(-difference/e.scale))
	return math.Max(0, math.Min(1, p))
}

// Categorize buckets a probability: safe at 0.7 and above, target at 0.5 and above, reach below.
func Categorize(p float64) types.Category {
	switch {
	case p >= SafeThreshold:
		return types.CategorySafe
	case p >= TargetThreshold:
		return types.CategoryTarget
	default:
		return types.CategoryReach
	}
}

func fallback(composite float64) types.ProbabilityResult {
	p := fallbackReach
	switch {
	case composite >= fallbackSafeScore:
		p = fallbackSafe
	case composite >= fallbackTargetScore:
		p = fallbackTarget
	}
	return types.ProbabilityResult{
		Probability:        p,
		ConfidenceInterval: [2]float64{fallbackLow, fallbackHigh},
		Category:           Categorize(p),
		ModelType:          types.ModelRuleBased,
		Features: types.Features{
			CompositeScore: composite,
			Trend:          types.DirectionStable,
		},
	}
}
