package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/okian/admission/internal/domain/model"
)

// Grade is a secondary-school examination letter grade.
type Grade string

// Grades from best to worst.
const (
	GradeA1 Grade = "A1"
	GradeB2 Grade = "B2"
	GradeB3 Grade = "B3"
	GradeC4 Grade = "C4"
	GradeC5 Grade = "C5"
	GradeC6 Grade = "C6"
	GradeD7 Grade = "D7"
	GradeE8 Grade = "E8"
	GradeF9 Grade = "F9"
)

// Grades lists every recognised grade, best first.
var Grades = []Grade{GradeA1, GradeB2, GradeB3, GradeC4, GradeC5, GradeC6, GradeD7, GradeE8, GradeF9}

// ParseGrade matches a token case-insensitively against the known grades.
func ParseGrade(token string) (Grade, bool) {
	g := Grade(strings.ToUpper(strings.TrimSpace(token)))
	for _, known := range Grades {
		if g == known {
			return g, true
		}
	}
	return "", false
}

// PointTable maps grades to point values.
type PointTable map[Grade]float64

// DefaultPointTable returns A1=6 down to C6=1, with D7, E8 and F9 worth nothing.
func DefaultPointTable() PointTable {
	return PointTable{
		GradeA1: 6,
		GradeB2: 5,
		GradeB3: 4,
		GradeC4: 3,
		GradeC5: 2,
		GradeC6: 1,
		GradeD7: 0,
		GradeE8: 0,
		GradeF9: 0,
	}
}

// maxPoints is the value of the best-scoring recognised grade.
func (t PointTable) maxPoints() float64 {
	best := 0.0
	for _, g := range Grades {
		if v := t[g]; v > best {
			best = v
		}
	}
	return best
}

// NormalizeGrades averages the points of every recognised grade and scales the
// average against the table's best grade to 0-100, rounded to 2 decimals.
// Unrecognised grades are skipped; with none recognised the result is 0.
// A nil table selects DefaultPointTable.
func NormalizeGrades(grades model.GradeRecord, table PointTable) (float64, error) {
	const op = "scoring.normalize_grades"
	if table == nil {
		table = DefaultPointTable()
	}
	for g, v := range table {
		if err := model.RequireFinite(op, "points["+string(g)+"]", v); err != nil {
			return 0, err
		}
	}

	subjects := make([]string, 0, len(grades))
	for subject := range grades {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	total, count := 0.0, 0
	for _, subject := range subjects {
		if strings.TrimSpace(subject) == "" {
			continue
		}
		g, ok := ParseGrade(grades[subject])
		if !ok {
			continue
		}
		total += table[g]
		count++
	}

	maxPoints := table.maxPoints()
	if count == 0 || maxPoints <= 0 {
		return 0, nil
	}
	scaled := total / float64(count) / maxPoints * 100
	return round2(clamp(scaled, 0, 100)), nil
}

// NormalizeTestScore rescales a raw standardized-test score to 0-100.
// Range checks on raw belong to the caller.
func NormalizeTestScore(raw, maxScale float64) (float64, error) {
	const op = "scoring.normalize_test_score"
	if err := model.RequireFinite(op, "raw", raw); err != nil {
		return 0, err
	}
	if err := model.RequireFinite(op, "max_scale", maxScale); err != nil {
		return 0, err
	}
	if maxScale <= 0 {
		return 0, model.Invalid(op, "max_scale", "must be positive")
	}
	return raw * 100 / maxScale, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
