// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	defaultMaxLimit  = 500
	maxBodyBytes     = 16 << 20
)

// Dependencies is everything the handlers need from the service layer.
type Dependencies interface {
	HandDependencies
	AnalysisDependencies
	ReviewDependencies
	PlayerDependencies
	ToolDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	handsHandler    *HandsHandler
	analysesHandler *AnalysesHandler
	reviewsHandler  *ReviewsHandler
	playersHandler  *PlayersHandler
	toolsHandler    *ToolsHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// page size of list endpoints; values below 1 use the default.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		handsHandler:    NewHandsHandler(deps),
		analysesHandler: NewAnalysesHandler(deps, maxLimit),
		reviewsHandler:  NewReviewsHandler(deps, maxLimit),
		playersHandler:  NewPlayersHandler(deps),
		toolsHandler:    NewToolsHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Post("/hands/build", MetricsMiddleware(s.handsHandler.HandleBuild, "hands_build"))
	r.Post("/hands/validate", MetricsMiddleware(s.handsHandler.HandleValidate, "hands_validate"))

	r.Route("/analyses", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.analysesHandler.HandleSubmit, "analyses_submit"))
		r.Get("/", MetricsMiddleware(s.analysesHandler.HandleList, "analyses_list"))
		r.Get("/{id}", MetricsMiddleware(s.analysesHandler.HandleGet, "analyses_get"))
		r.Post("/{id}/results", MetricsMiddleware(s.analysesHandler.HandleIngest, "analyses_results"))
	})
	r.Get("/reviews", MetricsMiddleware(s.reviewsHandler.HandleList, "reviews"))
	r.Get("/reviews/{id}", MetricsMiddleware(s.reviewsHandler.HandleGet, "reviews_get"))

	r.Post("/players", MetricsMiddleware(s.playersHandler.HandleAdd, "players_add"))
	r.Get("/players", MetricsMiddleware(s.playersHandler.HandleList, "players_list"))
	r.Post("/players/match", MetricsMiddleware(s.playersHandler.HandleMatch, "players_match"))

	r.Post("/prompts/optimize", MetricsMiddleware(s.toolsHandler.HandleOptimize, "prompts_optimize"))
	r.Post("/ocr/parse", MetricsMiddleware(s.toolsHandler.HandleParseOCR, "ocr_parse"))
}

// Routes returns a router with every route registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a single JSON document from the request body into v.
func decode(w http.ResponseWriter, r *http.Request, op string, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return WrapKind(op, ErrBadRequest, errors.New("empty body"))
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrBadRequest, name)
	}
	return n, nil
}
