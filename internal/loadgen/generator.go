package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
)

// Candidate profile ranges on the 0-400 test scale.
const (
	strongMin  = 280.0
	strongSpan = 100.0
	avgMin     = 200.0
	avgSpan    = 80.0
	weakMin    = 120.0
	weakSpan   = 80.0
	postMax    = 100.0
	profiles   = 3
)

var subjects = []string{"English", "Mathematics", "Physics", "Chemistry", "Biology"}

var profileGrades = [profiles][]string{
	{"A1", "B2", "B3"},
	{"B3", "C4", "C5", "C6"},
	{"C6", "D7", "E8", "F9"},
}

// generator produces reproducible programs and candidates from one seed.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// program builds a catalogue entry with a drifting cutoff history.
func (g *generator) program(index int) model.Program {
	base := 55 + g.rng.Float64()*20
	drift := g.rng.Float64()*2 - 1
	history := make(model.Series, 0, historyYears)
	for i := range historyYears {
		cutoff := base + drift*float64(i) + g.rng.Float64()*2 - 1
		history = append(history, model.CutoffEntry{
			Year:       firstHistoryYear + i,
			Cutoff:     float64(int(cutoff*10)) / 10,
			Confidence: model.ConfidenceVerified,
		})
	}
	return model.Program{
		ID:            uuid.NewString(),
		Name:          fmt.Sprintf("Program %03d", index),
		Institution:   "Load Test University",
		CutoffHistory: history,
	}
}

// candidate draws a strong, average or weak profile at random.
func (g *generator) candidate() model.Candidate {
	profile := g.rng.IntN(profiles)
	var score float64
	switch profile {
	case 0:
		score = strongMin + g.rng.Float64()*strongSpan
	case 1:
		score = avgMin + g.rng.Float64()*avgSpan
	default:
		score = weakMin + g.rng.Float64()*weakSpan
	}
	grades := make(model.GradeRecord, len(subjects))
	pool := profileGrades[profile]
	for _, s := range subjects {
		grades[s] = pool[g.rng.IntN(len(pool))]
	}
	c := model.Candidate{
		ID:        uuid.NewString(),
		TestScore: float64(int(score)),
		Grades:    grades,
	}
	if g.rng.IntN(2) == 0 {
		post := float64(int(g.rng.Float64() * postMax))
		c.SecondaryScore = &post
	}
	return c
}

// generatePrograms creates config.Programs catalogue entries.
func generatePrograms(ctx context.Context, g *generator, config *Config) []model.Program {
	out := make([]model.Program, config.Programs)
	for i := range out {
		out[i] = g.program(i)
	}
	logger.Get().Info(ctx, "generated programs", logger.Int("count", len(out)))
	return out
}

// generateCandidates creates config.Candidates candidates split into batches
// of at most config.BatchSize.
func generateCandidates(ctx context.Context, g *generator, config *Config, stats *Stats) [][]model.Candidate {
	batches := make([][]model.Candidate, 0, (config.Candidates+config.BatchSize-1)/config.BatchSize)
	current := make([]model.Candidate, 0, config.BatchSize)
	for range config.Candidates {
		current = append(current, g.candidate())
		if len(current) == config.BatchSize {
			batches = append(batches, current)
			current = make([]model.Candidate, 0, config.BatchSize)
		}
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	stats.CandidatesCreated = config.Candidates
	logger.Get().Info(ctx, "generated candidates",
		logger.Int("candidates", config.Candidates),
		logger.Int("batches", len(batches)))
	return batches
}
