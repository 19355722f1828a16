// Package vision extracts per-batch hand data from frames with an
// OpenAI-compatible chat completions endpoint.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/ocr"
	"github.com/okian/handrecon/pkg/logger"
	"github.com/okian/handrecon/pkg/metrics"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultBatchSize = 8
	defaultTimeout   = 60 * time.Second
	maxErrorBody     = 800
)

const responseContract = `Reply with one JSON object: {"actions":[{"playerName","street","actionType","amount","frameNumber","timestamp"}],` +
	`"boardCards":{"flop":{"cards":[]},"turn":{"cards":[]},"river":{"cards":[]}},` +
	`"holeCards":[{"playerName","cards"}],"winner":{"playerName","winAmount"} or null,"confidence":0..1}. ` +
	`Cards use rank then suit, for example "As" or "Td".`

// Client calls the chat completions API once per batch of frames.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	costPer1K float64
	http      *http.Client
	log       logger.Logger
}

// New creates a client. An API key is required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:   defaultBaseURL,
		model:     defaultModel,
		batchSize: defaultBatchSize,
		http:      &http.Client{Timeout: defaultTimeout},
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return c, nil
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Extract runs every batch of the job through the model with prompt as the
// system message and aggregates confidence, cost and OCR accuracy.
func (c *Client) Extract(ctx context.Context, job model.AnalysisJob, prompt string) (model.Extraction, error) { //nolint:gocritic // hugeParam
	if len(job.Frames) == 0 {
		return model.Extraction{}, ErrNoFrames
	}
	start := time.Now()

	var (
		batches []model.VisionBatchResult
		tokens  int
		confSum float64
		confN   int
	)
	for i, frames := range chunk(job.Frames, c.batchSize) {
		res, used, err := c.extractBatch(ctx, prompt, frames)
		if err != nil {
			metrics.RecordExtractionError()
			return model.Extraction{}, fmt.Errorf("batch %d of hand %s: %w", i, job.HandID, err)
		}
		tokens += used
		if res.Confidence != nil {
			confSum += *res.Confidence
			confN++
		}
		batches = append(batches, res)
	}

	var confidence float64
	if confN > 0 {
		confidence = confSum / float64(confN)
	}
	elapsed := time.Since(start)
	cost := float64(tokens) / 1000 * c.costPer1K
	metrics.RecordExtraction(elapsed.Seconds(), confidence, cost)

	c.log.Debug(ctx, "extraction finished",
		logger.String("handID", job.HandID),
		logger.Int("batches", len(batches)),
		logger.Int("tokens", tokens),
		logger.Float64("confidence", confidence),
	)

	return model.Extraction{
		Batches:    batches,
		Confidence: confidence,
		Metadata: model.RunMetadata{
			HandNumber:         job.HandNumber,
			FrameCount:         len(job.Frames),
			OCRAccuracy:        ocr.Accuracy(ocrRegions(job.Frames)),
			ExtractionDuration: elapsed.Milliseconds(),
			TotalCost:          cost,
			Confidence:         confidence,
		},
	}, nil
}

func (c *Client) extractBatch(ctx context.Context, prompt string, frames []model.Frame) (model.VisionBatchResult, int, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: prompt + "\n\n" + responseContract},
			{Role: "user", Content: userContent(frames)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return model.VisionBatchResult{}, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return model.VisionBatchResult{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return model.VisionBatchResult{}, 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.VisionBatchResult{}, 0, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.VisionBatchResult{}, 0, fmt.Errorf("%w: http %d: %s", ErrUpstream, resp.StatusCode, truncate(string(raw), maxErrorBody))
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return model.VisionBatchResult{}, 0, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if len(cc.Choices) == 0 {
		return model.VisionBatchResult{}, 0, fmt.Errorf("%w: no choices returned", ErrBadResponse)
	}

	var res model.VisionBatchResult
	if err := json.Unmarshal([]byte(stripFence(cc.Choices[0].Message.Content)), &res); err != nil {
		return model.VisionBatchResult{}, 0, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return res, cc.Usage.TotalTokens, nil
}

// userContent lists the frames, the OCR reading of each and the images.
func userContent(frames []model.Frame) []contentPart {
	var sb strings.Builder
	sb.WriteString("Frames in this batch:\n")
	for _, f := range frames {
		sb.WriteString("- frame " + strconv.Itoa(f.Number) + " at " + strconv.FormatFloat(f.Timestamp, 'f', 2, 64) + "s")
		if f.BoardOCR != "" {
			b := ocr.ParseBoardOCR(f.BoardOCR)
			sb.WriteString("; board OCR cards " + strings.Join(b.Cards, " "))
			if b.Pot != nil {
				sb.WriteString(", pot " + strconv.FormatFloat(*b.Pot, 'f', -1, 64))
			}
		}
		for _, text := range f.PlayerOCR {
			p := ocr.ParsePlayerOCR(text)
			sb.WriteString("; player OCR " + strconv.Quote(p.Raw))
			if p.Stack != nil {
				sb.WriteString(" stack " + strconv.FormatFloat(*p.Stack, 'f', -1, 64))
			}
		}
		sb.WriteString("\n")
	}

	parts := []contentPart{{Type: "text", Text: sb.String()}}
	for _, f := range frames {
		if f.ImageURL == "" {
			continue
		}
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageRef{URL: f.ImageURL}})
	}
	return parts
}

func ocrRegions(frames []model.Frame) []string {
	var out []string
	for _, f := range frames {
		out = append(out, f.PlayerOCR...)
		if f.BoardOCR != "" {
			out = append(out, f.BoardOCR)
		}
	}
	return out
}

func chunk[T any](s []T, size int) [][]T {
	var out [][]T
	for size < len(s) {
		out = append(out, s[:size:size])
		s = s[size:]
	}
	if len(s) > 0 {
		out = append(out, s)
	}
	return out
}

// stripFence removes a markdown code fence around a JSON reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
