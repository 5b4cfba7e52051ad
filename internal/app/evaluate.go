package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/trend"
	"github.com/okian/admission/internal/domain/types"
	"github.com/okian/admission/pkg/logger"
	"github.com/okian/admission/pkg/metrics"
)

// Evaluate runs the full eligibility pipeline for one candidate and program.
func (s *Service) Evaluate(ctx context.Context, c model.Candidate, programID string) (eligibility.Result, error) {
	const op = "service.evaluate"

	p, err := s.GetProgram(ctx, programID)
	if err != nil {
		return eligibility.Result{}, err
	}

	start := time.Now()
	res, err := s.evaluator.Evaluate(c, p)
	metrics.RecordEvaluationLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			metrics.RecordInvalidInput(op)
		}
		s.logger.Debug(ctx, "evaluation rejected",
			logger.String("program_id", programID),
			logger.Error(err),
		)
		return eligibility.Result{}, err
	}
	metrics.RecordEvaluation(string(res.ModelType), string(res.Category))
	return res, nil
}

// TrendReport bundles everything known about where a program's cutoff is heading.
type TrendReport struct {
	ProgramID  string              `json:"program_id"`
	DataPoints int                 `json:"data_points"`
	Trend      types.TrendResult   `json:"trend"`
	NextYear   *model.CutoffEntry  `json:"next_year,omitempty"`
	Forecast   []model.CutoffEntry `json:"forecast"`
	Insights   []string            `json:"insights"`
}

// ForecastYears is the horizon used when a caller does not ask for one.
func (s *Service) ForecastYears() int { return s.forecastYears }

// Trends fits the usable part of a program's cutoff history and forecasts years ahead.
func (s *Service) Trends(ctx context.Context, programID string, years int) (TrendReport, error) {
	const op = "service.trends"

	p, err := s.GetProgram(ctx, programID)
	if err != nil {
		return TrendReport{}, err
	}
	usable := p.CutoffHistory.Usable()

	report := TrendReport{ProgramID: p.ID, DataPoints: len(usable)}
	if report.Trend, err = trend.Calculate(usable); err != nil {
		return TrendReport{}, s.invalid(op, err)
	}
	next, ok, err := trend.PredictNext(usable)
	if err != nil {
		return TrendReport{}, s.invalid(op, err)
	}
	if ok {
		report.NextYear = &model.CutoffEntry{
			Year:       usable.SortedDesc()[0].Year + 1,
			Cutoff:     next,
			Confidence: model.ConfidenceEstimated,
		}
	}
	if report.Forecast, err = trend.PredictFuture(usable, years); err != nil {
		return TrendReport{}, s.invalid(op, err)
	}
	if report.Insights, err = trend.Insights(usable); err != nil {
		return TrendReport{}, s.invalid(op, err)
	}
	return report, nil
}

// Bands returns the probability curve around a composite score for a program.
func (s *Service) Bands(ctx context.Context, programID string, composite float64) ([]types.Band, error) {
	const op = "service.bands"

	p, err := s.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	bands, err := s.evaluator.Estimator().Bands(composite, p.CutoffHistory)
	if err != nil {
		return nil, s.invalid(op, err)
	}
	return bands, nil
}

func (s *Service) invalid(op string, err error) error {
	if errors.Is(err, model.ErrInvalidInput) {
		metrics.RecordInvalidInput(op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
