package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/admission/internal/domain/model"
)

// MemoryProgramStore keeps programs in a map. It is the default store and the
// one used by tests.
type MemoryProgramStore struct {
	mu       sync.RWMutex
	programs map[string]model.Program
}

// NewMemoryProgramStore returns an empty in-memory program store.
func NewMemoryProgramStore() *MemoryProgramStore {
	return &MemoryProgramStore{programs: make(map[string]model.Program)}
}

func (s *MemoryProgramStore) GetProgram(_ context.Context, id string) (model.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[id]
	if !ok {
		return model.Program{}, ErrNotFound
	}
	return cloneProgram(p), nil
}

func (s *MemoryProgramStore) PutProgram(_ context.Context, p model.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[p.ID] = cloneProgram(p)
	return nil
}

func (s *MemoryProgramStore) ListPrograms(_ context.Context) ([]model.Program, error) {
	s.mu.RLock()
	out := make([]model.Program, 0, len(s.programs))
	for _, p := range s.programs {
		out = append(out, cloneProgram(p))
	}
	s.mu.RUnlock()
	sortPrograms(out)
	return out, nil
}

func (s *MemoryProgramStore) CountPrograms(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.programs), nil
}

func (s *MemoryProgramStore) Close() error { return nil }

// cloneProgram copies the slice and pointer fields so callers cannot mutate stored state.
func cloneProgram(p model.Program) model.Program {
	p.CutoffHistory = append(model.Series(nil), p.CutoffHistory...)
	if p.LastVerifiedAt != nil {
		t := *p.LastVerifiedAt
		p.LastVerifiedAt = &t
	}
	return p
}

func sortPrograms(ps []model.Program) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].ID < ps[j].ID
	})
}

const defaultMaxBatches = 1000

type batchState struct {
	mu        sync.Mutex
	id        string
	total     int
	completed int
	failed    int
	submitted time.Time
	results   map[string]JobResult
	rank      *ranking
}

// MemoryResultStore keeps batch results in memory. When more than maxBatches
// batches exist the oldest is dropped.
type MemoryResultStore struct {
	mu         sync.RWMutex
	batches    map[string]*batchState
	order      []string
	maxBatches int
	now        func() time.Time
}

// NewMemoryResultStore returns an empty result store.
func NewMemoryResultStore(opts ...Option) *MemoryResultStore {
	s := &MemoryResultStore{
		batches:    make(map[string]*batchState),
		maxBatches: defaultMaxBatches,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryResultStore) CreateBatch(_ context.Context, id string, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; ok {
		return ErrBatchExists
	}
	for len(s.order) >= s.maxBatches {
		delete(s.batches, s.order[0])
		s.order = s.order[1:]
	}
	s.batches[id] = &batchState{
		id:        id,
		total:     total,
		submitted: s.now(),
		results:   make(map[string]JobResult),
		rank:      newRanking(),
	}
	s.order = append(s.order, id)
	return nil
}

func (s *MemoryResultStore) DeleteBatch(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; !ok {
		return
	}
	delete(s.batches, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MemoryResultStore) RecordResult(_ context.Context, r JobResult) error {
	s.mu.RLock()
	b, ok := s.batches[r.BatchID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, seen := b.results[r.JobID]; seen {
		b.uncount(prev)
	}
	b.results[r.JobID] = r
	b.count(r)
	score := failedScore
	if !r.Failed() {
		score = r.Result.Probability
	}
	b.rank.upsert(r.JobID, score)
	return nil
}

func (b *batchState) count(r JobResult) {
	if r.Failed() {
		b.failed++
	} else {
		b.completed++
	}
}

func (b *batchState) uncount(r JobResult) {
	if r.Failed() {
		b.failed--
	} else {
		b.completed--
	}
}

func (s *MemoryResultStore) Batch(_ context.Context, id string, limit int) (Batch, error) {
	if limit < 1 {
		return Batch{}, ErrInvalidLimit
	}
	s.mu.RLock()
	b, ok := s.batches[id]
	s.mu.RUnlock()
	if !ok {
		return Batch{}, ErrNotFound
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	ids := b.rank.top(limit)
	out := Batch{
		ID:          b.id,
		Total:       b.total,
		Completed:   b.completed,
		Failed:      b.failed,
		SubmittedAt: b.submitted,
		Results:     make([]JobResult, 0, len(ids)),
	}
	for _, jobID := range ids {
		out.Results = append(out.Results, b.results[jobID])
	}
	return out, nil
}

func (s *MemoryResultStore) CountBatches(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.batches)
}
