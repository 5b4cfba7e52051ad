// Package model contains domain models passed between layers.
package model

import (
	"math"
	"sort"
	"time"
)

// DataConfidence describes how a cutoff value was obtained.
type DataConfidence string

// Known cutoff provenance levels.
const (
	ConfidenceVerified   DataConfidence = "verified"
	ConfidenceEstimated  DataConfidence = "estimated"
	ConfidenceUnverified DataConfidence = "unverified"
)

// Valid reports whether c is one of the known provenance levels.
func (c DataConfidence) Valid() bool {
	switch c {
	case ConfidenceVerified, ConfidenceEstimated, ConfidenceUnverified:
		return true
	}
	return false
}

// AdmissionMode tags the admission channel a cutoff applies to, e.g. "utme".
type AdmissionMode string

// CutoffEntry is one year of a program's admission cutoff history.
type CutoffEntry struct {
	Year          int            `json:"year"`
	Cutoff        float64        `json:"cutoff"`
	AdmissionMode AdmissionMode  `json:"admission_mode,omitempty"`
	Confidence    DataConfidence `json:"confidence,omitempty"`
}

// Usable reports whether the entry carries both a year and a cutoff.
func (e CutoffEntry) Usable() bool {
	return e.Year > 0 && e.Cutoff > 0
}

// Series is a program's cutoff history.
type Series []CutoffEntry

// Usable returns the entries that carry both a year and a cutoff, in input order.
func (s Series) Usable() Series {
	out := make(Series, 0, len(s))
	for _, e := range s {
		if e.Usable() {
			out = append(out, e)
		}
	}
	return out
}

// SortedAsc returns a copy of s ordered by year, oldest first.
func (s Series) SortedAsc() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// SortedDesc returns a copy of s ordered by year, newest first.
func (s Series) SortedDesc() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// Normalize returns the canonical form stored at the ingestion boundary:
// one entry per year (the last one asserted for that year wins), oldest first.
func (s Series) Normalize() Series {
	byYear := make(map[int]int, len(s))
	out := make(Series, 0, len(s))
	for _, e := range s {
		if idx, ok := byYear[e.Year]; ok {
			out[idx] = e
			continue
		}
		byYear[e.Year] = len(out)
		out = append(out, e)
	}
	return out.SortedAsc()
}

// Validate rejects entries the estimator cannot degrade gracefully from.
func (s Series) Validate(op string) error {
	for _, e := range s {
		if e.Year < 0 {
			return Invalid(op, "year", "must not be negative")
		}
		if math.IsNaN(e.Cutoff) || math.IsInf(e.Cutoff, 0) {
			return Invalid(op, "cutoff", "must be finite")
		}
	}
	return nil
}

// Program is an academic program together with its cutoff history.
type Program struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Institution    string     `json:"institution"`
	CutoffHistory  Series     `json:"cutoff_history"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty"`
}

// GradeRecord maps subject names to letter grades, e.g. {"Maths": "A1"}.
type GradeRecord map[string]string

// Candidate holds a prospective student's raw scores.
type Candidate struct {
	ID             string      `json:"id"`
	TestScore      float64     `json:"utme"`
	Grades         GradeRecord `json:"olevels"`
	SecondaryScore *float64    `json:"post_utme,omitempty"`
}

// Job is one candidate evaluated against one program as part of a batch.
type Job struct {
	BatchID   string
	JobID     string
	Candidate Candidate
	ProgramID string
	Submitted time.Time
}
