package repository

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
)

// AnalysisID extracts the id of an analysis.
func AnalysisID(a model.Analysis) string { return a.ID } //nolint:gocritic // hugeParam: used as a generic id func

// RosterPlayerID extracts the id of a roster player.
func RosterPlayerID(p model.RosterPlayer) string { return p.ID }

// AnalysisTable maps model.Analysis onto hand_analyses.
var AnalysisTable = Table[model.Analysis]{
	Name: "hand_analyses",
	Columns: []string{
		"id", "hand_id", "hand_number", "status", "iteration", "confidence", "threshold",
		"ai_extracted_data", "validation_errors", "errors", "focus_areas", "failure_reason",
		"created_at", "updated_at",
	},
	OrderBy: "created_at, id",
	ID:      AnalysisID,
	Values:  analysisValues,
	Scan:    scanAnalysis,
}

// RosterTable maps model.RosterPlayer onto roster_players.
var RosterTable = Table[model.RosterPlayer]{
	Name:    "roster_players",
	Columns: []string{"id", "name", "created_at"},
	OrderBy: "created_at, id",
	ID:      RosterPlayerID,
	Values: func(p model.RosterPlayer) ([]any, error) {
		return []any{p.ID, p.Name, p.CreatedAt}, nil
	},
	Scan: func(row pgx.Row) (model.RosterPlayer, error) {
		var p model.RosterPlayer
		err := row.Scan(&p.ID, &p.Name, &p.CreatedAt)
		return p, err
	},
}

func analysisValues(a model.Analysis) ([]any, error) { //nolint:gocritic // hugeParam
	var hand []byte
	if a.AIExtractedData != nil {
		b, err := json.Marshal(a.AIExtractedData)
		if err != nil {
			return nil, fmt.Errorf("encode ai_extracted_data: %w", err)
		}
		hand = b
	}
	validation, err := jsonOrNil(a.ValidationErrors)
	if err != nil {
		return nil, err
	}
	handErrors, err := jsonOrNil(a.Errors)
	if err != nil {
		return nil, err
	}
	focus, err := jsonOrNil(a.FocusAreas)
	if err != nil {
		return nil, err
	}
	return []any{
		a.ID, a.HandID, a.HandNumber, string(a.Status), a.Iteration, a.Confidence, a.Threshold,
		hand, validation, handErrors, focus, a.FailureReason,
		a.CreatedAt, a.UpdatedAt,
	}, nil
}

func jsonOrNil[S ~[]E, E any](s S) ([]byte, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return json.Marshal(s)
}

func scanAnalysis(row pgx.Row) (model.Analysis, error) {
	var a model.Analysis
	var status string
	var hand, validation, errs, focus []byte
	err := row.Scan(
		&a.ID, &a.HandID, &a.HandNumber, &status, &a.Iteration, &a.Confidence, &a.Threshold,
		&hand, &validation, &errs, &focus, &a.FailureReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Analysis{}, err
	}
	a.Status = types.AnalysisStatus(status)

	if len(hand) > 0 {
		a.AIExtractedData = &model.HandHistory{}
		if err := json.Unmarshal(hand, a.AIExtractedData); err != nil {
			return model.Analysis{}, fmt.Errorf("decode ai_extracted_data: %w", err)
		}
	}
	for _, col := range []struct {
		raw  []byte
		into any
	}{
		{validation, &a.ValidationErrors},
		{errs, &a.Errors},
		{focus, &a.FocusAreas},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.into); err != nil {
			return model.Analysis{}, fmt.Errorf("decode analysis column: %w", err)
		}
	}
	return a, nil
}
