package scoring

import "github.com/okian/admission/internal/domain/model"

// Default composite weights.
const (
	DefaultAlpha = 0.6
	DefaultBeta  = 0.4
	DefaultGamma = 0.0
)

// Weights are the composite coefficients for the test, grade and secondary-test terms.
type Weights struct {
	Alpha float64 `koanf:"alpha" json:"alpha"`
	Beta  float64 `koanf:"beta" json:"beta"`
	Gamma float64 `koanf:"gamma" json:"gamma"`
}

// DefaultWeights returns alpha=0.6, beta=0.4 and no secondary-test term.
func DefaultWeights() Weights {
	return Weights{Alpha: DefaultAlpha, Beta: DefaultBeta, Gamma: DefaultGamma}
}

// Sum returns alpha+beta+gamma.
func (w Weights) Sum() float64 {
	return w.Alpha + w.Beta + w.Gamma
}

func (w Weights) validate(op string) error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"alpha", w.Alpha}, {"beta", w.Beta}, {"gamma", w.Gamma}} {
		if err := model.RequireFinite(op, f.name, f.v); err != nil {
			return err
		}
	}
	if w.Sum() < 0 {
		return model.Invalid(op, "weights", "must not sum to a negative value")
	}
	return nil
}

// Composite returns alpha*test + beta*grades (+ gamma*secondary when secondary is
// given and gamma > 0), rounded to 2 decimals. The result is not bounded.
func Composite(normTest, normGrades float64, secondary *float64, w Weights) (float64, error) {
	const op = "scoring.composite"
	if err := w.validate(op); err != nil {
		return 0, err
	}
	if err := model.RequireFinite(op, "test", normTest); err != nil {
		return 0, err
	}
	if err := model.RequireFinite(op, "grades", normGrades); err != nil {
		return 0, err
	}

	composite := w.Alpha*normTest + w.Beta*normGrades
	if secondary != nil {
		if err := model.RequireFinite(op, "secondary", *secondary); err != nil {
			return 0, err
		}
		if w.Gamma > 0 {
			composite += w.Gamma * *secondary
		}
	}
	return round2(composite), nil
}
