// Package extract calls the remote extraction endpoint for outcome and
// report candidates. Everything it returns is untrusted input for the
// deterministic gates downstream; any failure here simply means no candidate.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shipyardhq/shipyard/internal/config"
	"github.com/shipyardhq/shipyard/internal/outcome"
	"github.com/shipyardhq/shipyard/internal/report"
	"github.com/shipyardhq/shipyard/internal/session"
)

// Client talks to the extraction service.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates an extraction client from config. Returns nil when no
// endpoint is configured; callers treat a nil client as "extraction off".
func NewClient(cfg config.Extraction) *Client {
	if cfg.Endpoint == "" {
		return nil
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type extractionRequest struct {
	Task     string             `json:"task"`
	Coach    session.Coach      `json:"coach"`
	Messages session.Transcript `json:"messages"`
}

// OutcomeCandidate asks the service for an outcome candidate. A nil result
// with nil error means the service answered but produced nothing usable.
func (c *Client) OutcomeCandidate(ctx context.Context, coach session.Coach, transcript session.Transcript) (session.Outcome, error) {
	raw, err := c.complete(ctx, extractionRequest{
		Task:     "outcome",
		Coach:    coach,
		Messages: transcript.Conversational(),
	})
	if err != nil {
		return nil, err
	}
	return outcome.ParseCandidate(raw), nil
}

// ReportCandidate asks the service for a session report candidate.
func (c *Client) ReportCandidate(ctx context.Context, coach session.Coach, transcript session.Transcript) (*report.Candidate, error) {
	raw, err := c.complete(ctx, extractionRequest{
		Task:     "report",
		Coach:    coach,
		Messages: transcript.Conversational(),
	})
	if err != nil {
		return nil, err
	}
	return report.ParseCandidate(raw), nil
}

// complete posts one request and returns the raw model text.
func (c *Client) complete(ctx context.Context, reqBody extractionRequest) (string, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("extraction API returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return result.Content, nil
}
