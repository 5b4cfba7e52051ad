package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/admission/internal/adapters/repository"
	service "github.com/okian/admission/internal/app"
)

// BatchDependencies submits batches and reads their results.
type BatchDependencies interface {
	SubmitBatch(ctx context.Context, req service.BatchRequest) (service.BatchReceipt, error)
	BatchResults(ctx context.Context, batchID string, limit int) (repository.Batch, error)
}

// BatchesHandler handles batch requests.
type BatchesHandler struct {
	deps     BatchDependencies
	validate validator
	responder
}

// HandleSubmit handles POST /batches requests. A new batch answers 202, a
// repeated batch ID answers 200 with duplicate set.
func (h *BatchesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_batch"
	var req service.BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	req.BatchID = strings.TrimSpace(req.BatchID)
	for i, c := range req.Candidates {
		if err := h.validate.candidate(fmt.Sprintf("candidates[%d].", i), c); err != nil {
			h.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	for i, id := range req.ProgramIDs {
		if err := validProgramID(fmt.Sprintf("program_ids[%d]", i), id); err != nil {
			h.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	receipt, err := h.deps.SubmitBatch(r.Context(), req)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	status := http.StatusAccepted
	if receipt.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, receipt)
}

// HandleResults handles GET /batches/{id}?limit=N requests.
func (h *BatchesHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.batch_results"
	limit := defaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxLimit {
			h.fail(w, r, WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be an integer between 1 and %d", maxLimit)))
			return
		}
		limit = n
	}
	b, err := h.deps.BatchResults(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, b)
}
