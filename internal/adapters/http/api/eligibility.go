package api

import (
	"context"
	"net/http"

	"github.com/okian/admission/internal/domain/eligibility"
	"github.com/okian/admission/internal/domain/model"
)

// EligibilityDependencies evaluates a single candidate.
type EligibilityDependencies interface {
	Evaluate(ctx context.Context, c model.Candidate, programID string) (eligibility.Result, error)
}

// EligibilityHandler handles eligibility requests.
type EligibilityHandler struct {
	deps     EligibilityDependencies
	validate validator
	responder
}

// eligibilityRequest mirrors the OpenAPI schema for POST /eligibility.
type eligibilityRequest struct {
	model.Candidate
	ProgramID string `json:"program_id"`
}

// HandleEvaluate handles POST /eligibility requests.
func (h *EligibilityHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	const op = "api.evaluate"
	var req eligibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validProgramID("program_id", req.ProgramID); err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.candidate("", req.Candidate); err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Evaluate(r.Context(), req.Candidate, req.ProgramID)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
