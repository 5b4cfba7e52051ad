package probability

import (
	"math"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/types"
)

// Band sampling around a composite score.
const (
	BandSpread  = 30
	BandStep    = 2
	BandCeiling = 100
)

// Bands samples the probability curve from max(0, c-30) to min(100, c+30) in
// steps of 2 points. The result is empty when that range is empty.
func (e *Estimator) Bands(composite float64, series model.Series) ([]types.Band, error) {
	const op = "probability.bands"
	if err := model.RequireFinite(op, "composite_score", composite); err != nil {
		return nil, err
	}
	if err := series.Validate(op); err != nil {
		return nil, err
	}

	lo := math.Max(0, composite-BandSpread)
	hi := math.Min(BandCeiling, composite+BandSpread)
	if hi < lo {
		return []types.Band{}, nil
	}
	n := int(math.Floor((hi-lo)/BandStep)) + 1
	out := make([]types.Band, 0, n)
	for i := 0; i < n; i++ {
		score := math.Round((lo+float64(i*BandStep))*100) / 100
		res, err := e.Estimate(score, series)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Band{Score: score, Probability: res.Probability})
	}
	return out, nil
}
