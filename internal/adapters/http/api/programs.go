package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/admission/internal/app"
	"github.com/okian/admission/internal/domain/model"
	"github.com/okian/admission/internal/domain/types"
)

// ProgramDependencies covers the program catalogue and the per-program analyses.
type ProgramDependencies interface {
	GetProgram(ctx context.Context, id string) (model.Program, error)
	PutProgram(ctx context.Context, p model.Program) (model.Program, error)
	ListPrograms(ctx context.Context) ([]model.Program, error)
	Trends(ctx context.Context, programID string, years int) (service.TrendReport, error)
	Bands(ctx context.Context, programID string, composite float64) ([]types.Band, error)
	ForecastYears() int
}

// ProgramsHandler handles program requests.
type ProgramsHandler struct {
	deps ProgramDependencies
	responder
}

// programRequest mirrors the OpenAPI schema for PUT /programs/{id}.
type programRequest struct {
	Name           string       `json:"name"`
	Institution    string       `json:"institution"`
	CutoffHistory  model.Series `json:"cutoff_history"`
	LastVerifiedAt *time.Time   `json:"last_verified_at,omitempty"`
}

// programID reads and checks the {id} path parameter.
func programID(r *http.Request, op string) (string, error) {
	id := chi.URLParam(r, "id")
	if err := validProgramID("program id", id); err != nil {
		return "", WrapKind(op, ErrBadRequest, err)
	}
	return id, nil
}

// HandleList handles GET /programs requests.
func (h *ProgramsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_programs"
	ps, err := h.deps.ListPrograms(r.Context())
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// HandleGet handles GET /programs/{id} requests.
func (h *ProgramsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_program"
	id, err := programID(r, op)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.deps.GetProgram(r.Context(), id)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePut handles PUT /programs/{id} requests.
func (h *ProgramsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_program"
	id, err := programID(r, op)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req programRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.PutProgram(r.Context(), model.Program{
		ID:             id,
		Name:           req.Name,
		Institution:    req.Institution,
		CutoffHistory:  req.CutoffHistory,
		LastVerifiedAt: req.LastVerifiedAt,
	})
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleTrends handles GET /programs/{id}/trends?years=N requests.
func (h *ProgramsHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	const op = "api.program_trends"
	id, err := programID(r, op)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	years := h.deps.ForecastYears()
	if s := r.URL.Query().Get("years"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > maxForecastYears {
			h.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("years must be an integer between 0 and %d", maxForecastYears)))
			return
		}
		years = n
	}
	report, err := h.deps.Trends(r.Context(), id, years)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleBands handles GET /programs/{id}/bands?score=S requests.
func (h *ProgramsHandler) HandleBands(w http.ResponseWriter, r *http.Request) {
	const op = "api.program_bands"
	id, err := programID(r, op)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	score, err := strconv.ParseFloat(r.URL.Query().Get("score"), 64)
	if err != nil || score < 0 || score > 100 {
		h.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("score must be a number between 0 and 100")))
		return
	}
	bands, err := h.deps.Bands(r.Context(), id, score)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, bands)
}
