package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/domain/model"
)

// AnalysisDependencies defines the asynchronous analysis operations.
type AnalysisDependencies interface {
	Submit(ctx context.Context, job model.AnalysisJob) (model.Analysis, error)
	Get(ctx context.Context, id string) (model.Analysis, error)
	List(ctx context.Context, limit, offset int) ([]model.Analysis, error)
	Ingest(ctx context.Context, id string, req service.IngestRequest) (model.Analysis, error)
}

type submitResponse struct {
	Status    string         `json:"status"`
	Duplicate bool           `json:"duplicate"`
	Analysis  model.Analysis `json:"analysis"`
}

// AnalysesHandler handles analysis submission and lookup.
type AnalysesHandler struct {
	deps     AnalysisDependencies
	maxLimit int
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps AnalysisDependencies, maxLimit int) *AnalysesHandler {
	return &AnalysesHandler{deps: deps, maxLimit: maxLimit}
}

// HandleSubmit handles POST /analyses. A new job is accepted with 202; a
// hand that was already submitted returns its analysis with 200.
func (h *AnalysesHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_analysis"
	var job model.AnalysisJob
	if err := decode(w, r, op, &job); err != nil {
		fail(w, err)
		return
	}
	a, err := h.deps.Submit(r.Context(), job)
	switch {
	case errors.Is(err, service.ErrDuplicate):
		writeJSON(w, http.StatusOK, submitResponse{Status: "duplicate", Duplicate: true, Analysis: a})
	case err != nil:
		fail(w, Wrap(op, err))
	default:
		writeJSON(w, http.StatusAccepted, submitResponse{Status: "accepted", Analysis: a})
	}
}

// HandleGet handles GET /analyses/{id}.
func (h *AnalysesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analysis"
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		fail(w, NewKind(op, ErrBadRequest))
		return
	}
	a, err := h.deps.Get(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleList handles GET /analyses?limit=N&offset=M.
func (h *AnalysesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_analyses"
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if limit < 1 || limit > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	items, err := h.deps.List(r.Context(), limit, offset)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if items == nil {
		items = []model.Analysis{}
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleIngest handles POST /analyses/{id}/results: batch results produced
// elsewhere are built, checked and decided under the given analysis id.
func (h *AnalysesHandler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_results"
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	var req service.IngestRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	a, err := h.deps.Ingest(r.Context(), id, req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, a)
}
