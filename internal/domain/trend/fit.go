package trend

import (
	"math"

	"github.com/okian/admission/internal/domain/model"
)

// line is an ordinary least-squares fit cutoff = slope*year + intercept.
type line struct {
	slope     float64
	intercept float64
	meanY     float64
	// degenerate is set when every year is identical and the slope is undefined.
	// The line is then flat at the mean cutoff.
	degenerate bool
}

func (l line) at(year int) float64 {
	return l.slope*float64(year) + l.intercept
}

// fitLine fits an OLS line to an ascending series of at least one point.
// Years are centred on their mean before accumulating, which is algebraically the
// closed form (n·Σxy − Σx·Σy) / (n·Σx² − (Σx)²) without the large intermediate sums.
func fitLine(asc model.Series) line {
	n := float64(len(asc))
	var sumX, sumY float64
	for _, e := range asc {
		sumX += float64(e.Year)
		sumY += e.Cutoff
	}
	meanX, meanY := sumX/n, sumY/n

	var sxy, sxx float64
	for _, e := range asc {
		dx := float64(e.Year) - meanX
		sxy += dx * (e.Cutoff - meanY)
		sxx += dx * dx
	}
	if sxx == 0 {
		return line{intercept: meanY, meanY: meanY, degenerate: true}
	}
	slope := sxy / sxx
	return line{slope: slope, intercept: meanY - slope*meanX, meanY: meanY}
}

// residualSpread is the sample standard deviation of the residuals around l.
func residualSpread(asc model.Series, l line) float64 {
	if len(asc) < 2 {
		return 0
	}
	var ss float64
	for _, e := range asc {
		r := e.Cutoff - l.at(e.Year)
		ss += r * r
	}
	return math.Sqrt(ss / float64(len(asc)-1))
}

// clampCutoff bounds a projected cutoff to the valid domain and rounds it.
func clampCutoff(v float64) float64 {
	return math.Max(MinCutoff, math.Min(MaxCutoff, math.Round(v)))
}
