package handctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/handrecon/internal/domain/model"
)

// SubmitResult is the server's answer to POST /analyses.
type SubmitResult struct {
	Status    string         `json:"status"`
	Duplicate bool           `json:"duplicate"`
	Analysis  model.Analysis `json:"analysis"`
}

// Client talks to a handrecon server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit posts job for analysis. A duplicate hand is not an error.
func (c *Client) Submit(ctx context.Context, job model.AnalysisJob) (SubmitResult, error) { //nolint:gocritic // hugeParam
	var res SubmitResult
	status, err := c.do(ctx, http.MethodPost, "/analyses", job, &res)
	if err != nil {
		return SubmitResult{}, err
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		return SubmitResult{}, fmt.Errorf("%w: status %d", ErrServer, status)
	}
	return res, nil
}

// Get fetches an analysis by id.
func (c *Client) Get(ctx context.Context, id string) (model.Analysis, error) {
	var a model.Analysis
	status, err := c.do(ctx, http.MethodGet, "/analyses/"+id, nil, &a)
	if err != nil {
		return model.Analysis{}, err
	}
	if status != http.StatusOK {
		return model.Analysis{}, fmt.Errorf("%w: status %d", ErrServer, status)
	}
	return a, nil
}

// Wait polls the analysis every interval until it reaches a terminal status.
func (c *Client) Wait(ctx context.Context, id string, interval time.Duration) (model.Analysis, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		a, err := c.Get(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return model.Analysis{}, fmt.Errorf("%w: %w", ErrWaitTimedOut, err)
			}
			return model.Analysis{}, err
		}
		if a.Status.Terminal() {
			return a, nil
		}
		select {
		case <-ctx.Done():
			return a, fmt.Errorf("%w: last status %s", ErrWaitTimedOut, a.Status)
		case <-ticker.C:
		}
	}
}

type serverError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do sends body as JSON and decodes a 2xx response into out. Error bodies
// are surfaced as ErrServer with the server's message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var se serverError
		if json.Unmarshal(data, &se) == nil && se.Message != "" {
			return resp.StatusCode, fmt.Errorf("%w: %d %s: %s", ErrServer, resp.StatusCode, se.Code, se.Message)
		}
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
