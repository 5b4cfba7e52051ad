package trend

import (
	"fmt"
	"math"
	"strconv"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/types"
)

// Insight thresholds in cutoff points.
const (
	notableYearChange      = 5
	notablePredictedChange = 3
)

// InsufficientData is the only insight produced for series shorter than two points.
const InsufficientData = "Insufficient data for insights. More historical data needed."

// Insights summarises the series in plain sentences: the trend, a notable
// year-over-year move, next year's prediction and a closing confidence remark.
func Insights(series model.Series) ([]string, error) {
	if err := series.Validate("trend.insights"); err != nil {
		return nil, err
	}
	if len(series) < 2 {
		return []string{InsufficientData}, nil
	}

	tr, err := Calculate(series)
	if err != nil {
		return nil, err
	}
	prediction, hasPrediction, err := PredictNext(series)
	if err != nil {
		return nil, err
	}
	asc := series.SortedAsc()
	latest, previous := asc[len(asc)-1], asc[len(asc)-2]

	out := make([]string, 0, 4)
	switch tr.Direction {
	case types.DirectionIncreasing, types.DirectionDecreasing:
		out = append(out, fmt.Sprintf("Cutoff has been %s by an average of %.1f points per year.", tr.Direction, tr.RatePerYear))
	default:
		out = append(out, "Cutoff has remained relatively stable over the years.")
	}

	if change := latest.Cutoff - previous.Cutoff; math.Abs(change) > notableYearChange {
		kind := "significant increase"
		if change < 0 {
			kind = "significant decrease"
		}
		out = append(out, fmt.Sprintf("Last year saw a %s of %s points.", kind, formatPoints(math.Abs(change))))
	}

	if hasPrediction {
		change := prediction - latest.Cutoff
		if math.Abs(change) > notablePredictedChange {
			sign := ""
			if change > 0 {
				sign = "+"
			}
			out = append(out, fmt.Sprintf("Based on current trends, next year's cutoff is predicted to be %s (%s%s points).",
				formatPoints(prediction), sign, formatPoints(change)))
		} else {
			out = append(out, fmt.Sprintf("Based on current trends, next year's cutoff is predicted to remain around %s.", formatPoints(prediction)))
		}
	}

	switch tr.Confidence {
	case types.TrendConfidenceHigh:
		out = append(out, "High confidence in trend analysis due to consistent historical data.")
	case types.TrendConfidenceMedium:
		out = append(out, "Moderate confidence in trend analysis. Treat predictions as indicative.")
	default:
		out = append(out, "Low confidence in predictions. More historical data would improve accuracy.")
	}
	return out, nil
}

// formatPoints prints v to at most 2 decimals with the shortest representation, e.g. 10 or 7.5.
func formatPoints(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
