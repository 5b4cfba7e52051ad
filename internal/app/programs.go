package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/admission/internal/adapters/repository"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/pkg/logger"
	"github.com/okian/admission/pkg/metrics"
)

// GetProgram returns a program by ID, or ErrNotFound.
func (s *Service) GetProgram(ctx context.Context, id string) (model.Program, error) {
	p, err := s.programs.GetProgram(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Program{}, fmt.Errorf("program %s: %w", id, ErrNotFound)
	}
	if err != nil {
		metrics.RecordErrorByComponent("service", "program_store")
		return model.Program{}, fmt.Errorf("get program %s: %w", id, err)
	}
	return p, nil
}

// ListPrograms returns the catalogue ordered by name, then ID.
func (s *Service) ListPrograms(ctx context.Context) ([]model.Program, error) {
	ps, err := s.programs.ListPrograms(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("service", "program_store")
		return nil, fmt.Errorf("list programs: %w", err)
	}
	return ps, nil
}

// PutProgram validates and stores a program. An empty ID gets a fresh UUID. The
// cutoff history is normalized to one entry per year, oldest first.
func (s *Service) PutProgram(ctx context.Context, p model.Program) (model.Program, error) {
	const op = "service.put_program"

	if p.ID == "" {
		p.ID = uuid.NewString()
	} else if _, err := uuid.Parse(p.ID); err != nil {
		return model.Program{}, s.invalid(op, model.Invalid(op, "id", "must be a UUID"))
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Institution = strings.TrimSpace(p.Institution)
	if p.Name == "" {
		return model.Program{}, s.invalid(op, model.Invalid(op, "name", "must not be empty"))
	}
	if err := p.CutoffHistory.Validate(op); err != nil {
		return model.Program{}, s.invalid(op, err)
	}
	for _, e := range p.CutoffHistory {
		if e.Confidence != "" && !e.Confidence.Valid() {
			return model.Program{}, s.invalid(op, model.Invalid(op, "confidence", "must be verified, estimated or unverified"))
		}
	}
	p.CutoffHistory = p.CutoffHistory.Normalize()

	if err := s.programs.PutProgram(ctx, p); err != nil {
		metrics.RecordErrorByComponent("service", "program_store")
		return model.Program{}, fmt.Errorf("put program %s: %w", p.ID, err)
	}
	if n, err := s.programs.CountPrograms(ctx); err == nil {
		metrics.UpdateProgramsTotal(n)
	}
	s.logger.Info(ctx, "program stored",
		logger.String("program_id", p.ID),
		logger.Int("years", len(p.CutoffHistory)),
	)
	return p, nil
}
