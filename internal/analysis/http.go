package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient calls a decision engine over HTTP: one POST per analysis run
// carrying the snapshot, symbols and window, answered with the decision map.
type HTTPClient struct {
	url        string
	httpClient *http.Client
}

var _ Analyzer = (*HTTPClient)(nil)

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type analyzeRequest struct {
	Snapshot Snapshot `json:"portfolio"`
	Symbols  []string `json:"tickers"`
	Window   Window   `json:"window"`
}

type analyzeResponse struct {
	Decisions map[string]Decision `json:"decisions"`
}

func (c *HTTPClient) Analyze(ctx context.Context, snap Snapshot, symbols []string, window Window) (map[string]Decision, error) {
	body, err := json.Marshal(analyzeRequest{
		Snapshot: snap,
		Symbols:  symbols,
		Window:   window,
	})
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("analysis engine returned %d: %s", resp.StatusCode, data)
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	return out.Decisions, nil
}
