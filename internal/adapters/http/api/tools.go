package api

import (
	"context"
	"net/http"

	service "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/refine"
)

// ToolDependencies covers the stateless prompt and OCR helpers.
type ToolDependencies interface {
	Optimize(ctx context.Context, base string, ic model.IterationContext) refine.Optimization
	ParseOCR(ctx context.Context, req service.OCRRequest) service.OCRResult
}

type optimizeRequest struct {
	BasePrompt string                 `json:"basePrompt"`
	Context    model.IterationContext `json:"context"`
}

// ToolsHandler handles prompt optimisation and OCR parsing.
type ToolsHandler struct {
	deps ToolDependencies
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(deps ToolDependencies) *ToolsHandler {
	return &ToolsHandler{deps: deps}
}

// HandleOptimize handles POST /prompts/optimize.
func (h *ToolsHandler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "api.optimize_prompt"
	var req optimizeRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Optimize(r.Context(), req.BasePrompt, req.Context))
}

// HandleParseOCR handles POST /ocr/parse.
func (h *ToolsHandler) HandleParseOCR(w http.ResponseWriter, r *http.Request) {
	const op = "api.parse_ocr"
	var req service.OCRRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ParseOCR(r.Context(), req))
}
