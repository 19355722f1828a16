package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/handrecon/internal/adapters/repository"
)

const defaultReviewLimit = 20

// ReviewDependencies defines the interface for the manual review queue.
type ReviewDependencies interface {
	Reviews(ctx context.Context, n int) ([]repository.ReviewEntry, error)
	ReviewPosition(ctx context.Context, analysisID string) (repository.ReviewEntry, error)
}

// ReviewsHandler handles review queue requests.
type ReviewsHandler struct {
	deps     ReviewDependencies
	maxLimit int
}

// NewReviewsHandler creates a new reviews handler.
func NewReviewsHandler(deps ReviewDependencies, maxLimit int) *ReviewsHandler {
	return &ReviewsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /reviews?limit=N, lowest confidence first.
func (h *ReviewsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_reviews"
	n, err := queryInt(r, "limit", defaultReviewLimit)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	entries, err := h.deps.Reviews(r.Context(), n)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if entries == nil {
		entries = []repository.ReviewEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGet handles GET /reviews/{id}. Analyses not awaiting review are 404.
func (h *ReviewsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.review_position"
	e, err := h.deps.ReviewPosition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, e)
}
