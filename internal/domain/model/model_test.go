package model_test

import (
	"errors"
	"math"
	"testing"

	model "github.com/okian/admission/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSeries(t *testing.T) {
	convey.Convey("Given a cutoff series with gaps and duplicates", t, func() {
		series := model.Series{
			{Year: 2023, Cutoff: 210},
			{Year: 2021, Cutoff: 200},
			{Year: 0, Cutoff: 190},
			{Year: 2022, Cutoff: 0},
			{Year: 2023, Cutoff: 212, Confidence: model.ConfidenceVerified},
		}

		convey.Convey("When taking usable entries", func() {
			usable := series.Usable()

			convey.Convey("Then entries missing a year or a cutoff are dropped", func() {
				convey.So(len(usable), convey.ShouldEqual, 3)
				for _, e := range usable {
					convey.So(e.Year, convey.ShouldBeGreaterThan, 0)
					convey.So(e.Cutoff, convey.ShouldBeGreaterThan, 0)
				}
			})
		})

		convey.Convey("When sorting", func() {
			asc := series.Usable().SortedAsc()
			desc := series.Usable().SortedDesc()

			convey.Convey("Then the input is left untouched", func() {
				convey.So(series[0].Year, convey.ShouldEqual, 2023)
			})

			convey.Convey("And the copies are ordered by year", func() {
				convey.So(asc[0].Year, convey.ShouldEqual, 2021)
				convey.So(desc[0].Year, convey.ShouldEqual, 2023)
				convey.So(desc[len(desc)-1].Year, convey.ShouldEqual, 2021)
			})
		})

		convey.Convey("When normalizing", func() {
			normalized := series.Normalize()

			convey.Convey("Then there is one entry per year and the last assertion wins", func() {
				convey.So(len(normalized), convey.ShouldEqual, 4)
				last := normalized[len(normalized)-1]
				convey.So(last.Year, convey.ShouldEqual, 2023)
				convey.So(last.Cutoff, convey.ShouldEqual, 212)
				convey.So(last.Confidence, convey.ShouldEqual, model.ConfidenceVerified)
			})

			convey.Convey("And it is ordered oldest first", func() {
				for i := 1; i < len(normalized); i++ {
					convey.So(normalized[i].Year, convey.ShouldBeGreaterThan, normalized[i-1].Year)
				}
			})
		})
	})
}

func TestSeriesValidate(t *testing.T) {
	convey.Convey("Given series to validate", t, func() {
		convey.Convey("When a year is negative", func() {
			err := model.Series{{Year: -1, Cutoff: 200}}.Validate("test")

			convey.Convey("Then an invalid input error is returned", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
				var ie *model.InvalidInputError
				convey.So(errors.As(err, &ie), convey.ShouldBeTrue)
				convey.So(ie.Field, convey.ShouldEqual, "year")
			})
		})

		convey.Convey("When a cutoff is not finite", func() {
			err := model.Series{{Year: 2020, Cutoff: math.NaN()}}.Validate("test")

			convey.Convey("Then an invalid input error is returned", func() {
				convey.So(errors.Is(err, model.ErrInvalidInput), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When entries are merely incomplete", func() {
			err := model.Series{{Year: 0, Cutoff: 0}}.Validate("test")

			convey.Convey("Then no error is returned", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestDataConfidence(t *testing.T) {
	convey.Convey("Given provenance levels", t, func() {
		convey.So(model.ConfidenceVerified.Valid(), convey.ShouldBeTrue)
		convey.So(model.ConfidenceEstimated.Valid(), convey.ShouldBeTrue)
		convey.So(model.ConfidenceUnverified.Valid(), convey.ShouldBeTrue)
		convey.So(model.DataConfidence("guess").Valid(), convey.ShouldBeFalse)
	})
}
