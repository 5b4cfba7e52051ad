package probability_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/probability"
	"github.com/okian/admission/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func threeYears() model.Series {
	return model.Series{
		{Year: 2021, Cutoff: 200},
		{Year: 2022, Cutoff: 205},
		{Year: 2023, Cutoff: 210},
	}
}

func TestEstimate(t *testing.T) {
	e := probability.NewEstimator()

	Convey("Given three years of history and a composite 5 points above the latest cutoff", t, func() {
		res, err := e.Estimate(215, threeYears())

		Convey("Then the logistic probability is about 0.6225 and the category is target", func() {
			So(err, ShouldBeNil)
			So(res.Probability, ShouldAlmostEqual, 1/(1+math.Exp(-0.5)), 1e-12)
			So(res.Probability, ShouldAlmostEqual, 0.6225, 1e-4)
			So(res.Category, ShouldEqual, types.CategoryTarget)
			So(res.ModelType, ShouldEqual, types.ModelLogistic)
		})

		Convey("And the interval is the probability plus or minus 0.15", func() {
			So(res.ConfidenceInterval[0], ShouldAlmostEqual, res.Probability-0.15, 1e-12)
			So(res.ConfidenceInterval[1], ShouldAlmostEqual, res.Probability+0.15, 1e-12)
		})

		Convey("And the features describe the inputs", func() {
			So(res.Features, ShouldResemble, types.Features{
				CompositeScore: 215,
				YearsOfData:    3,
				LatestCutoff:   210,
				Trend:          types.DirectionIncreasing,
			})
		})
	})

	Convey("Given history in arbitrary order", t, func() {
		res, err := e.Estimate(215, model.Series{{Year: 2023, Cutoff: 210}, {Year: 2021, Cutoff: 200}, {Year: 2022, Cutoff: 205}})
		So(err, ShouldBeNil)
		So(res.Features.LatestCutoff, ShouldEqual, 210)
	})

	Convey("Given only two usable years", t, func() {
		res, err := e.Estimate(215, model.Series{{Year: 2022, Cutoff: 205}, {Year: 2023, Cutoff: 210}})

		Convey("Then the logistic value is kept but labelled rule-based", func() {
			So(err, ShouldBeNil)
			So(res.Probability, ShouldAlmostEqual, 1/(1+math.Exp(-0.5)), 1e-12)
			So(res.ModelType, ShouldEqual, types.ModelRuleBased)
			So(res.Features.YearsOfData, ShouldEqual, 2)
		})
	})

	Convey("Given an empty series", t, func() {
		Convey("A composite of 65 is safe under the rule-based model", func() {
			res, err := e.Estimate(65, nil)
			So(err, ShouldBeNil)
			So(res.Probability, ShouldEqual, 0.7)
			So(res.Category, ShouldEqual, types.CategorySafe)
			So(res.ModelType, ShouldEqual, types.ModelRuleBased)
			So(res.ConfidenceInterval, ShouldResemble, [2]float64{0.2, 0.8})
			So(res.ConfidenceInterval[1]-res.ConfidenceInterval[0], ShouldAlmostEqual, 0.6, 1e-12)
			So(res.Features.YearsOfData, ShouldEqual, 0)
			So(res.Features.Trend, ShouldEqual, types.DirectionStable)
		})

		Convey("A composite of 55 is target", func() {
			res, err := e.Estimate(55, model.Series{})
			So(err, ShouldBeNil)
			So(res.Probability, ShouldEqual, 0.5)
			So(res.Category, ShouldEqual, types.CategoryTarget)
		})

		Convey("A composite of 40 is reach", func() {
			res, err := e.Estimate(40, nil)
			So(err, ShouldBeNil)
			So(res.Probability, ShouldEqual, 0.3)
			So(res.Category, ShouldEqual, types.CategoryReach)
		})
	})

	Convey("Given a series with no usable entries", t, func() {
		res, err := e.Estimate(65, model.Series{{Year: 0, Cutoff: 200}, {Year: 2022, Cutoff: 0}})

		Convey("Then the rule-based fallback applies", func() {
			So(err, ShouldBeNil)
			So(res.ModelType, ShouldEqual, types.ModelRuleBased)
			So(res.ConfidenceInterval, ShouldResemble, [2]float64{0.2, 0.8})
			So(res.Features.YearsOfData, ShouldEqual, 0)
		})
	})

	Convey("Given a fixed series", t, func() {
		Convey("Probability increases with the composite score", func() {
			prev := -1.0
			for c := 150.0; c <= 270; c += 5 {
				res, err := e.Estimate(c, threeYears())
				So(err, ShouldBeNil)
				So(res.Probability, ShouldBeGreaterThan, prev)
				prev = res.Probability
			}
		})

		Convey("Probability and interval stay in [0, 1]", func() {
			for _, c := range []float64{-1000, 0, 210, 1000} {
				res, err := e.Estimate(c, threeYears())
				So(err, ShouldBeNil)
				So(res.Probability, ShouldBeBetweenOrEqual, 0.0, 1.0)
				So(res.ConfidenceInterval[0], ShouldBeGreaterThanOrEqualTo, 0.0)
				So(res.ConfidenceInterval[1], ShouldBeLessThanOrEqualTo, 1.0)
			}
		})
	})

	Convey("Given a composite far above the cutoff", t, func() {
		res, err := e.Estimate(400, threeYears())
		So(err, ShouldBeNil)
		So(res.Category, ShouldEqual, types.CategorySafe)
		So(res.ConfidenceInterval[1], ShouldEqual, 1.0)
	})

	Convey("Given invalid input", t, func() {
		_, err := e.Estimate(math.NaN(), threeYears())
		So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)

		_, err = e.Estimate(200, model.Series{{Year: -1, Cutoff: 200}})
		So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
	})
}

func TestOptions(t *testing.T) {
	Convey("Given a flatter scale", t, func() {
		e := probability.NewEstimator(probability.WithScale(20))
		res, err := e.Estimate(215, threeYears())
		So(err, ShouldBeNil)
		So(res.Probability, ShouldAlmostEqual, 1/(1+math.Exp(-0.25)), 1e-12)
	})

	Convey("Given a custom margin", t, func() {
		e := probability.NewEstimator(probability.WithMargin(0.05))
		res, err := e.Estimate(210, threeYears())
		So(err, ShouldBeNil)
		So(res.Probability, ShouldEqual, 0.5)
		So(res.ConfidenceInterval[0], ShouldAlmostEqual, 0.45, 1e-12)
		So(res.ConfidenceInterval[1], ShouldAlmostEqual, 0.55, 1e-12)
	})

	Convey("Given invalid options", t, func() {
		e := probability.NewEstimator(probability.WithScale(0), probability.WithScale(math.Inf(1)), probability.WithMargin(-1), probability.WithMargin(2))
		So(e.Scale(), ShouldEqual, probability.DefaultScale)
		So(e.Margin(), ShouldEqual, probability.DefaultMargin)
	})
}

func TestCategorize(t *testing.T) {
	Convey("Thresholds are inclusive", t, func() {
		So(probability.Categorize(0.7), ShouldEqual, types.CategorySafe)
		So(probability.Categorize(0.6999), ShouldEqual, types.CategoryTarget)
		So(probability.Categorize(0.5), ShouldEqual, types.CategoryTarget)
		So(probability.Categorize(0.4999), ShouldEqual, types.CategoryReach)
	})
}

func TestBands(t *testing.T) {
	e := probability.NewEstimator()
	series := model.Series{{Year: 2022, Cutoff: 55}, {Year: 2023, Cutoff: 60}}

	Convey("Given a composite in the middle of the range", t, func() {
		bands, err := e.Bands(50, series)

		Convey("Then it samples every 2 points from 20 to 80", func() {
			So(err, ShouldBeNil)
			So(len(bands), ShouldEqual, 31)
			So(bands[0].Score, ShouldEqual, 20)
			So(bands[30].Score, ShouldEqual, 80)
		})

		Convey("And the probabilities rise with the score", func() {
			for i := 1; i < len(bands); i++ {
				So(bands[i].Probability, ShouldBeGreaterThan, bands[i-1].Probability)
			}
		})
	})

	Convey("Given composites near the edges", t, func() {
		high, err := e.Bands(90, series)
		So(err, ShouldBeNil)
		So(high[0].Score, ShouldEqual, 60)
		So(high[len(high)-1].Score, ShouldEqual, 100)

		low, err := e.Bands(10, series)
		So(err, ShouldBeNil)
		So(low[0].Score, ShouldEqual, 0)
		So(low[len(low)-1].Score, ShouldEqual, 40)
	})

	Convey("Given a composite whose range is empty", t, func() {
		bands, err := e.Bands(140, series)
		So(err, ShouldBeNil)
		So(bands, ShouldBeEmpty)
	})

	Convey("Given no history", t, func() {
		bands, err := e.Bands(50, nil)
		So(err, ShouldBeNil)
		So(bands[0].Probability, ShouldEqual, 0.3)
		So(bands[len(bands)-1].Probability, ShouldEqual, 0.7)
	})

	Convey("Given a non-finite composite", t, func() {
		_, err := e.Bands(math.Inf(-1), series)
		So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
	})
}
