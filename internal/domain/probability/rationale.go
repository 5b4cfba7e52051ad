package probability

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/types"
)

// RationaleInput carries everything the rationale sentence mentions.
// Probability and Category are optional.
type RationaleInput struct {
	Composite   float64
	TestScore   float64
	GradeScore  float64
	ProgramName string
	Institution string
	Series      model.Series
	Probability *float64
	Category    types.Category
}

// Rationale explains an estimate in plain sentences. The output depends only on
// the input.
func Rationale(in RationaleInput) string {
	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("Your composite score (%s) is based on UTME score of %s and O-level points of %s.",
		num(in.Composite), num(in.TestScore), num(in.GradeScore)))

	if usable := in.Series.Usable(); len(usable) > 0 {
		latest := usable.SortedDesc()[0]
		diff := in.Composite - latest.Cutoff
		where := fmt.Sprintf("the %d cutoff (%s) for %s at %s", latest.Year, num(latest.Cutoff), in.ProgramName, in.Institution)
		switch {
		case diff > 0:
			parts = append(parts, fmt.Sprintf("This is %.1f points above %s.", diff, where))
		case diff < 0:
			parts = append(parts, fmt.Sprintf("This is %.1f points below %s.", -diff, where))
		default:
			parts = append(parts, fmt.Sprintf("This is exactly at %s.", where))
		}
	}

	if in.Probability != nil {
		parts = append(parts, fmt.Sprintf("Based on historical data, your estimated admission probability is %d%%.",
			int(math.Round(*in.Probability*100))))
	}

	if label := in.Category.Label(); label != "" {
		parts = append(parts, fmt.Sprintf("This is considered a %s choice.", label))
	}
	return strings.Join(parts, " ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
