// Package trend fits a linear trend to a program's cutoff history, classifies it
// and extrapolates future cutoffs.
//
// Every function sorts its own copy of the series by year and never mutates the
// caller's slice. Series with fewer than two points degrade to a stable, low
// confidence trend and an empty forecast instead of failing.
package trend

import (
	"math"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/types"
)

// Cutoff domain and classification thresholds.
const (
	MinCutoff = 0
	MaxCutoff = 400

	// StableSlope is the |slope| in points/year below which a trend is stable.
	StableSlope = 1.0

	highConfidenceCV     = 0.10
	highConfidencePoints = 5
	medConfidenceCV      = 0.20
	medConfidencePoints  = 3

	// DefaultHorizon is the number of years forecast by default.
	DefaultHorizon = 3
)

func prepare(op string, series model.Series) (model.Series, error) {
	if err := series.Validate(op); err != nil {
		return nil, err
	}
	return series.SortedAsc(), nil
}

// Calculate returns the direction, absolute slope and confidence of the series trend.
func Calculate(series model.Series) (types.TrendResult, error) {
	asc, err := prepare("trend.calculate", series)
	if err != nil {
		return types.TrendResult{}, err
	}
	flat := types.TrendResult{Direction: types.DirectionStable, RatePerYear: 0, Confidence: types.TrendConfidenceLow}
	if len(asc) < 2 {
		return flat, nil
	}
	l := fitLine(asc)
	if l.degenerate {
		return flat, nil
	}

	res := types.TrendResult{RatePerYear: math.Abs(l.slope)}
	switch {
	case math.Abs(l.slope) < StableSlope:
		res.Direction = types.DirectionStable
	case l.slope > 0:
		res.Direction = types.DirectionIncreasing
	default:
		res.Direction = types.DirectionDecreasing
	}
	res.Confidence = confidence(asc, l)
	return res, nil
}

// confidence grades the fit by the coefficient of variation of its residuals.
func confidence(asc model.Series, l line) types.TrendConfidence {
	if l.meanY <= 0 {
		return types.TrendConfidenceLow
	}
	cv := residualSpread(asc, l) / l.meanY
	switch {
	case cv < highConfidenceCV && len(asc) >= highConfidencePoints:
		return types.TrendConfidenceHigh
	case cv < medConfidenceCV && len(asc) >= medConfidencePoints:
		return types.TrendConfidenceMedium
	default:
		return types.TrendConfidenceLow
	}
}

// PredictNext projects the cutoff for the year after the latest one, clamped to
// [0, 400] and rounded. ok is false when the series has fewer than two points.
func PredictNext(series model.Series) (value float64, ok bool, err error) {
	future, err := PredictFuture(series, 1)
	if err != nil || len(future) == 0 {
		return 0, false, err
	}
	return future[0].Cutoff, true, nil
}

// PredictFuture projects cutoffs for the horizon years after the latest one.
// It returns exactly horizon entries, or none when the series has fewer than two points.
func PredictFuture(series model.Series, horizon int) ([]model.CutoffEntry, error) {
	const op = "trend.predict_future"
	if horizon < 0 {
		return nil, model.Invalid(op, "horizon", "must not be negative")
	}
	asc, err := prepare(op, series)
	if err != nil {
		return nil, err
	}
	if len(asc) < 2 || horizon == 0 {
		return []model.CutoffEntry{}, nil
	}

	l := fitLine(asc)
	last := asc[len(asc)-1].Year
	out := make([]model.CutoffEntry, horizon)
	for i := range out {
		year := last + i + 1
		out[i] = model.CutoffEntry{
			Year:       year,
			Cutoff:     clampCutoff(l.at(year)),
			Confidence: model.ConfidenceEstimated,
		}
	}
	return out, nil
}
