package scoring_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/admission/internal/domain/model"
	scoring "github.com/okian/admission/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeGrades(t *testing.T) {
	Convey("Given grade records", t, func() {
		Convey("When two subjects are A1 and B2", func() {
			got, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": "A1", "English": "B2"}, nil)

			Convey("Then the average is scaled against A1 and rounded", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 91.67)
			})
		})

		Convey("When every subject is A1", func() {
			for _, n := range []int{1, 3, 9} {
				grades := model.GradeRecord{}
				for i := 0; i < n; i++ {
					grades[string(rune('a'+i))] = "A1"
				}
				got, err := scoring.NormalizeGrades(grades, nil)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 100)
			}
		})

		Convey("When no grade is recognised", func() {
			got, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": "Z9", "Art": ""}, nil)

			Convey("Then the result is exactly zero", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 0)
			})
		})

		Convey("When the record is empty", func() {
			got, err := scoring.NormalizeGrades(nil, nil)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 0)
		})

		Convey("When tokens are lower case or padded", func() {
			got, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": " a1", "Physics": "c6 "}, nil)

			Convey("Then they are still recognised", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 58.33)
			})
		})

		Convey("When unrecognised tokens are mixed in", func() {
			got, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": "A1", "Biology": "pass"}, nil)

			Convey("Then they are not counted", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 100)
			})
		})

		Convey("When a blank subject name is present", func() {
			got, err := scoring.NormalizeGrades(model.GradeRecord{"": "F9", "Maths": "A1"}, nil)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 100)
		})

		Convey("When an override table is supplied", func() {
			table := scoring.PointTable{scoring.GradeA1: 10, scoring.GradeB2: 5}
			got, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": "A1", "English": "B2", "Chem": "C4"}, table)

			Convey("Then grades missing from the table count as zero points", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 50)
			})
		})

		Convey("When the table holds a non-finite value", func() {
			_, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": "A1"}, scoring.PointTable{scoring.GradeA1: math.Inf(1)})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When every table value is zero", func() {
			got, err := scoring.NormalizeGrades(model.GradeRecord{"Maths": "A1"}, scoring.PointTable{scoring.GradeA1: 0})
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 0)
		})
	})
}

func TestParseGrade(t *testing.T) {
	Convey("Given grade tokens", t, func() {
		g, ok := scoring.ParseGrade("b3")
		So(ok, ShouldBeTrue)
		So(g, ShouldEqual, scoring.GradeB3)

		_, ok = scoring.ParseGrade("A")
		So(ok, ShouldBeFalse)
	})
}

func TestNormalizeTestScore(t *testing.T) {
	Convey("Given a raw test score on a 400 scale", t, func() {
		got, err := scoring.NormalizeTestScore(280, 400)
		So(err, ShouldBeNil)
		So(got, ShouldAlmostEqual, 70, 1e-9)

		Convey("When the scale is not positive", func() {
			_, err := scoring.NormalizeTestScore(280, 0)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When the raw score is NaN", func() {
			_, err := scoring.NormalizeTestScore(math.NaN(), 400)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestComposite(t *testing.T) {
	Convey("Given default weights", t, func() {
		w := scoring.DefaultWeights()

		Convey("When combining 70 and 91.67", func() {
			got, err := scoring.Composite(70, 91.67, nil, w)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, 78.67)
		})

		Convey("When a secondary score is given but gamma is zero", func() {
			secondary := 90.0
			got, err := scoring.Composite(70, 91.67, &secondary, w)

			Convey("Then it is ignored", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 78.67)
			})
		})

		Convey("When gamma is engaged", func() {
			secondary := 80.0
			got, err := scoring.Composite(70, 90, &secondary, scoring.Weights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2})

			Convey("Then the secondary term is added", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, 78)
			})
		})

		Convey("When the weights sum to a negative value", func() {
			_, err := scoring.Composite(70, 90, nil, scoring.Weights{Alpha: -1, Beta: 0.2})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When an input is infinite", func() {
			_, err := scoring.Composite(math.Inf(-1), 90, nil, w)
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then it is non-decreasing in each positively weighted argument", func() {
			prev := -1.0
			for test := 0.0; test <= 100; test += 2.5 {
				got, err := scoring.Composite(test, 50, nil, w)
				So(err, ShouldBeNil)
				So(got, ShouldBeGreaterThanOrEqualTo, prev)
				prev = got
			}
			prev = -1.0
			for grades := 0.0; grades <= 100; grades += 2.5 {
				got, err := scoring.Composite(50, grades, nil, w)
				So(err, ShouldBeNil)
				So(got, ShouldBeGreaterThanOrEqualTo, prev)
				prev = got
			}
		})
	})
}

func TestScorer(t *testing.T) {
	Convey("Given a default scorer", t, func() {
		scorer := scoring.NewScorer()

		Convey("When scoring UTME 280 with A1 and B2", func() {
			res, err := scorer.Score(scoring.Input{
				TestScore: 280,
				Grades:    model.GradeRecord{"Maths": "A1", "English": "B2"},
			})

			Convey("Then the pipeline reproduces the worked example", func() {
				So(err, ShouldBeNil)
				So(res.NormalizedTest, ShouldAlmostEqual, 70, 1e-9)
				So(res.NormalizedGrades, ShouldEqual, 91.67)
				So(res.Composite, ShouldEqual, 78.67)
				So(res.NormalizedSecondary, ShouldBeNil)
			})
		})

		Convey("When a secondary score is given on its own scale", func() {
			secondary := 40.0
			s := scoring.NewScorer(
				scoring.WithWeights(scoring.Weights{Alpha: 0.5, Beta: 0.3, Gamma: 0.2}),
				scoring.WithSecondaryMaxScore(50),
			)
			res, err := s.Score(scoring.Input{
				TestScore:      200,
				Grades:         model.GradeRecord{"Maths": "A1"},
				SecondaryScore: &secondary,
			})

			Convey("Then it is normalized before weighting", func() {
				So(err, ShouldBeNil)
				So(*res.NormalizedSecondary, ShouldAlmostEqual, 80, 1e-9)
				So(res.Composite, ShouldEqual, 71)
			})
		})

		Convey("When options are invalid", func() {
			s := scoring.NewScorer(scoring.WithTestMaxScore(-5), scoring.WithPointTable(nil))

			Convey("Then defaults are kept", func() {
				So(s.TestMaxScore(), ShouldEqual, scoring.DefaultTestMaxScore)
				So(s.Weights(), ShouldResemble, scoring.DefaultWeights())
			})
		})

		Convey("When the raw score is NaN", func() {
			_, err := scorer.Score(scoring.Input{TestScore: math.NaN()})
			So(errors.Is(err, model.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
