package api

import (
	"context"
	"net/http"

	"github.com/okian/handrecon/internal/domain/consistency"
	"github.com/okian/handrecon/internal/domain/model"
)

// HandDependencies builds and checks hands synchronously.
type HandDependencies interface {
	BuildHand(ctx context.Context, batches []model.VisionBatchResult, meta model.RunMetadata) model.HandHistory
	ValidateHand(ctx context.Context, hand model.HandHistory) consistency.Report
}

type buildRequest struct {
	Batches  []model.VisionBatchResult `json:"batches"`
	Metadata model.RunMetadata         `json:"metadata"`
}

type buildResponse struct {
	Hand   model.HandHistory  `json:"hand"`
	Report consistency.Report `json:"report"`
}

// HandsHandler handles hand assembly and validation requests.
type HandsHandler struct {
	deps HandDependencies
}

// NewHandsHandler creates a new hands handler.
func NewHandsHandler(deps HandDependencies) *HandsHandler {
	return &HandsHandler{deps: deps}
}

// HandleBuild handles POST /hands/build: merge batches, assemble the hand and
// report what the checks found.
func (h *HandsHandler) HandleBuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.build_hand"
	var req buildRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	hand := h.deps.BuildHand(r.Context(), req.Batches, req.Metadata)
	writeJSON(w, http.StatusOK, buildResponse{
		Hand:   hand,
		Report: h.deps.ValidateHand(r.Context(), hand),
	})
}

// HandleValidate handles POST /hands/validate.
func (h *HandsHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_hand"
	var hand model.HandHistory
	if err := decode(w, r, op, &hand); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ValidateHand(r.Context(), hand))
}
