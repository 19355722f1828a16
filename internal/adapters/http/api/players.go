package api

import (
	"context"
	"net/http"

	service "github.com/okian/handrecon/internal/app"
	"github.com/okian/handrecon/internal/domain/model"
)

// PlayerDependencies defines roster and identity-resolution operations.
type PlayerDependencies interface {
	MatchPlayer(ctx context.Context, req service.MatchRequest) (service.MatchResponse, error)
	AddRosterPlayer(ctx context.Context, name string) (model.RosterPlayer, error)
	Roster(ctx context.Context) ([]model.RosterPlayer, error)
}

type addPlayerRequest struct {
	Name string `json:"name"`
}

// PlayersHandler handles roster requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleMatch handles POST /players/match.
func (h *PlayersHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_player"
	var req service.MatchRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	resp, err := h.deps.MatchPlayer(r.Context(), req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAdd handles POST /players.
func (h *PlayersHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_player"
	var req addPlayerRequest
	if err := decode(w, r, op, &req); err != nil {
		fail(w, err)
		return
	}
	p, err := h.deps.AddRosterPlayer(r.Context(), req.Name)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /players.
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_players"
	players, err := h.deps.Roster(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if players == nil {
		players = []model.RosterPlayer{}
	}
	writeJSON(w, http.StatusOK, players)
}
