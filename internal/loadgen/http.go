package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/okian/pulse/internal/domain/model"
	"github.com/okian/pulse/pkg/logger"
)

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeACR
	outcomeHeuristic
	outcomeNone
)

type pulseResponse struct {
	Matched bool `json:"matched"`
	Result  *struct {
		Source model.MatchSource `json:"source"`
	} `json:"result"`
}

// client wraps http.Client with the target base URL.
type client struct {
	hc   *http.Client
	base string
}

func newClient(cfg Config) *client {
	return &client{hc: cfg.HTTPClient, base: cfg.BaseURL}
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.hc.Do(req)
}

func closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logger.Get().Debug(context.Background(), "failed to close response body", logger.Error(err))
	}
}

func (c *client) health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// pulse posts one request and classifies the answer.
func (c *client) pulse(ctx context.Context, r Request) outcome {
	body, err := json.Marshal(r)
	if err != nil {
		return outcomeFailed
	}
	resp, err := c.do(ctx, http.MethodPost, "/pulse", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return outcomeFailed
	}

	var pr pulseResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return outcomeFailed
	}
	if !pr.Matched || pr.Result == nil {
		return outcomeNone
	}
	if pr.Result.Source == model.SourceACR {
		return outcomeACR
	}
	return outcomeHeuristic
}

// history returns how many stored entries the server holds for userID.
func (c *client) history(ctx context.Context, userID string, limit int) (int, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("limit", strconv.Itoa(limit))

	resp, err := c.do(ctx, http.MethodGet, "/pulse/history?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("history for %s: status %d", userID, resp.StatusCode)
	}

	var entries []model.PulseEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return 0, fmt.Errorf("decoding history: %w", err)
	}
	return len(entries), nil
}
