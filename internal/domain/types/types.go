// Package types contains the closed enumerations and result shapes shared by
// the estimator packages and the API.
package types

// Direction classifies the slope of a cutoff trend.
type Direction string

// Trend directions.
const (
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionStable     Direction = "stable"
)

// TrendConfidence grades how well a straight line explains a cutoff series.
type TrendConfidence string

// Trend confidence levels.
const (
	TrendConfidenceHigh   TrendConfidence = "high"
	TrendConfidenceMedium TrendConfidence = "medium"
	TrendConfidenceLow    TrendConfidence = "low"
)

// Category is the admission-likelihood bucket.
type Category string

// Admission categories.
const (
	CategorySafe   Category = "safe"
	CategoryTarget Category = "target"
	CategoryReach  Category = "reach"
)

// Label returns the upper-case form used in rationale text.
func (c Category) Label() string {
	switch c {
	case CategorySafe:
		return "SAFE"
	case CategoryTarget:
		return "TARGET"
	case CategoryReach:
		return "REACH"
	}
	return ""
}

// ModelType annotates how much statistical weight a probability carries.
// It reflects data volume, not which formula ran.
type ModelType string

// Model annotations.
const (
	ModelLogistic  ModelType = "logistic"
	ModelRuleBased ModelType = "rule-based"
)

// TrendResult is the fitted trend of a cutoff series.
type TrendResult struct {
	Direction   Direction       `json:"direction"`
	RatePerYear float64         `json:"rate_per_year"`
	Confidence  TrendConfidence `json:"confidence"`
}

// Features are the model inputs echoed back with a probability.
type Features struct {
	CompositeScore float64   `json:"composite_score"`
	YearsOfData    int       `json:"years_of_data"`
	LatestCutoff   float64   `json:"latest_cutoff"`
	Trend          Direction `json:"trend"`
}

// ProbabilityResult is the estimator's verdict for one candidate and program.
type ProbabilityResult struct {
	Probability        float64    `json:"probability"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	Category           Category   `json:"category"`
	ModelType          ModelType  `json:"model_type"`
	Features           Features   `json:"features"`
}

// Band is one point of a probability-versus-score curve.
type Band struct {
	Score       float64 `json:"score"`
	Probability float64 `json:"probability"`
}
