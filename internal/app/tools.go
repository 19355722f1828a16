package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/handrecon/internal/adapters/repository"
	"github.com/okian/handrecon/internal/domain/assemble"
	"github.com/okian/handrecon/internal/domain/consistency"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/namematch"
	"github.com/okian/handrecon/internal/domain/ocr"
	"github.com/okian/handrecon/internal/domain/refine"
	"github.com/okian/handrecon/pkg/logger"
	"github.com/okian/handrecon/pkg/metrics"
)

// MatchRequest asks for roster identities close to Name. Candidates default
// to the roster; Threshold and TopN default to the service settings.
type MatchRequest struct {
	Name       string   `json:"name"`
	Candidates []string `json:"candidates,omitempty"`
	Threshold  *int     `json:"threshold,omitempty"`
	TopN       int      `json:"topN,omitempty"`
}

// MatchResponse holds the best match, if any, and ranked alternatives.
type MatchResponse struct {
	Query   string                  `json:"query"`
	Best    *namematch.MatchResult  `json:"best"`
	Matches []namematch.MatchResult `json:"matches"`
}

// OCRRequest carries raw region text from one frame.
type OCRRequest struct {
	Players []string `json:"players"`
	Board   string   `json:"board"`
}

// OCRResult is the parsed form of an OCRRequest.
type OCRResult struct {
	Players  []ocr.PlayerOCR `json:"players"`
	Board    ocr.BoardOCR    `json:"board"`
	Accuracy float64         `json:"accuracy"`
}

// BuildHand assembles a hand, resolving names against the roster.
func (s *Service) BuildHand(ctx context.Context, batches []model.VisionBatchResult, meta model.RunMetadata) model.HandHistory { //nolint:gocritic // hugeParam
	hand := s.assembler(ctx).Build(ctx, batches, meta)
	metrics.RecordHandBuilt()
	return hand
}

// ValidateHand runs the structural and semantic checks.
func (s *Service) ValidateHand(_ context.Context, hand model.HandHistory) consistency.Report { //nolint:gocritic // hugeParam
	report := consistency.Evaluate(hand)
	for _, msg := range report.Validation.Errors {
		metrics.RecordValidationFailure(msg)
	}
	return report
}

// MatchPlayer scores req.Name against the candidates or the roster.
func (s *Service) MatchPlayer(ctx context.Context, req MatchRequest) (MatchResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return MatchResponse{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	threshold := s.matchThreshold
	if req.Threshold != nil {
		if *req.Threshold < 0 || *req.Threshold > 100 {
			return MatchResponse{}, fmt.Errorf("%w: threshold must be within 0..100", ErrInvalidInput)
		}
		threshold = *req.Threshold
	}
	topN := s.matchTopN
	if req.TopN > 0 {
		topN = req.TopN
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		names, err := s.rosterNames(ctx)
		if err != nil {
			return MatchResponse{}, err
		}
		candidates = names
	}

	resp := MatchResponse{
		Query:   req.Name,
		Matches: namematch.FindTopMatches(req.Name, candidates, topN, threshold),
	}
	if best, ok := namematch.FindBestMatch(req.Name, candidates, threshold); ok {
		resp.Best = &best
		metrics.RecordNameMatch(string(best.Confidence))
	} else {
		metrics.RecordNameMatch("none")
	}
	return resp, nil
}

// AddRosterPlayer registers a known player name.
func (s *Service) AddRosterPlayer(ctx context.Context, name string) (model.RosterPlayer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.RosterPlayer{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	p := model.RosterPlayer{ID: uuid.NewString(), Name: name, CreatedAt: s.now().UTC()}
	if err := s.roster.InsertOne(ctx, p); err != nil {
		return model.RosterPlayer{}, err
	}
	return p, nil
}

// Roster lists the known players.
func (s *Service) Roster(ctx context.Context) ([]model.RosterPlayer, error) {
	return s.roster.FetchMany(ctx, repository.Query{})
}

// Optimize returns the prompt and acceptance bar for the attempt in ic.
func (s *Service) Optimize(_ context.Context, base string, ic model.IterationContext) refine.Optimization { //nolint:gocritic // hugeParam
	ic.IterationNumber = min(max(ic.IterationNumber, 1), refine.MaxIterations)
	return refine.OptimizePrompt(base, ic)
}

// ParseOCR parses player and board regions.
func (s *Service) ParseOCR(_ context.Context, req OCRRequest) OCRResult {
	res := OCRResult{Players: make([]ocr.PlayerOCR, 0, len(req.Players))}
	for _, text := range req.Players {
		p := ocr.ParsePlayerOCR(text)
		metrics.RecordOCRParse("player", p.Stack != nil || len(p.Cards) > 0)
		res.Players = append(res.Players, p)
	}
	res.Board = ocr.ParseBoardOCR(req.Board)
	if strings.TrimSpace(req.Board) != "" {
		metrics.RecordOCRParse("board", res.Board.Pot != nil || len(res.Board.Cards) > 0)
	}
	res.Accuracy = ocr.Accuracy(append(append([]string(nil), req.Players...), req.Board))
	return res
}

// assembler resolves names against the current roster.
func (s *Service) assembler(ctx context.Context) *assemble.Assembler {
	opts := []assemble.Option{assemble.WithLogger(s.logger.Named("assemble"))}
	names, err := s.rosterNames(ctx)
	if err != nil {
		s.logger.Warn(ctx, "roster unavailable, names left unresolved", logger.Error(err))
	}
	if len(names) > 0 {
		opts = append(opts, assemble.WithRoster(names, s.matchThreshold))
	}
	return assemble.New(opts...)
}

func (s *Service) rosterNames(ctx context.Context) ([]string, error) {
	players, err := s.roster.FetchMany(ctx, repository.Query{})
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, p.Name)
	}
	return names, nil
}

func (s *Service) seedRosterPlayers(ctx context.Context) error {
	if len(s.seedRoster) == 0 {
		return nil
	}
	known, err := s.rosterNames(ctx)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(known))
	for _, n := range known {
		have[namematch.Normalize(n)] = true
	}
	for _, name := range s.seedRoster {
		key := namematch.Normalize(name)
		if key == "" || have[key] {
			continue
		}
		if _, err := s.AddRosterPlayer(ctx, name); err != nil {
			return err
		}
		have[key] = true
	}
	return nil
}
