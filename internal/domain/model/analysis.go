package model

import (
	"time"

	"github.com/okian/handrecon/internal/domain/types"
)

// Frame is one sampled video frame of a hand, with optional OCR text per region.
type Frame struct {
	Number    int      `json:"number"`
	Timestamp float64  `json:"timestamp"`
	ImageURL  string   `json:"image_url"`
	PlayerOCR []string `json:"player_ocr,omitempty"`
	BoardOCR  string   `json:"board_ocr,omitempty"`
}

// AnalysisJob is a queued request to extract one hand from video frames.
type AnalysisJob struct {
	ID          string    `json:"id"`
	HandID      string    `json:"hand_id"`
	HandNumber  string    `json:"hand_number"`
	BasePrompt  string    `json:"base_prompt"`
	Frames      []Frame   `json:"frames"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Extraction is what one extractor attempt returns.
type Extraction struct {
	Batches    []VisionBatchResult
	Confidence float64
	Metadata   RunMetadata
}

// Analysis is the persisted record of a hand's extraction lifecycle.
type Analysis struct {
	ID               string               `json:"id"`
	HandID           string               `json:"hand_id"`
	HandNumber       string               `json:"hand_number"`
	Status           types.AnalysisStatus `json:"status"`
	Iteration        int                  `json:"iteration"`
	Confidence       float64              `json:"confidence"`
	Threshold        float64              `json:"threshold"`
	AIExtractedData  *HandHistory         `json:"ai_extracted_data,omitempty"`
	ValidationErrors []string             `json:"validation_errors,omitempty"`
	Errors           []HandError          `json:"errors,omitempty"`
	FocusAreas       []string             `json:"focus_areas,omitempty"`
	FailureReason    string               `json:"failure_reason,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// RosterPlayer is a known player identity used for name resolution.
type RosterPlayer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// HandAnalyzedEvent is published when an analysis reaches a decision.
type HandAnalyzedEvent struct {
	AnalysisID string               `json:"analysis_id"`
	HandID     string               `json:"hand_id"`
	Status     types.AnalysisStatus `json:"status"`
	Iteration  int                  `json:"iteration"`
	Confidence float64              `json:"confidence"`
	ErrorCount int                  `json:"error_count"`
	At         time.Time            `json:"at"`
}
