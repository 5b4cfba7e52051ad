package api

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/scoring"
)

// validator holds the range checks applied at the HTTP boundary. The domain
// packages accept any finite number.
type validator struct {
	testMaxScore float64
}

func (v validator) candidate(field string, c model.Candidate) error {
	if c.TestScore < 0 || c.TestScore > v.testMaxScore {
		return fmt.Errorf("%sutme must be between 0 and %g", field, v.testMaxScore)
	}
	if len(c.Grades) == 0 {
		return fmt.Errorf("%solevels must not be empty", field)
	}
	for subject := range c.Grades {
		if strings.TrimSpace(subject) == "" {
			return fmt.Errorf("%solevels has a blank subject name", field)
		}
	}
	if c.SecondaryScore != nil && (*c.SecondaryScore < 0 || *c.SecondaryScore > scoring.DefaultSecondaryMaxScore) {
		return fmt.Errorf("%spost_utme must be between 0 and %d", field, scoring.DefaultSecondaryMaxScore)
	}
	return nil
}

func validProgramID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%s must be a UUID", field)
	}
	return nil
}
