package dealgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// Client talks to the attribution service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Outcome of a single submission.
type Outcome int

// Submission outcomes.
const (
	OutcomeFailed Outcome = iota
	OutcomeAccepted
	OutcomeDuplicate
)

// Health checks that the metrics endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Submit posts one deal and classifies the reply.
func (c *Client) Submit(ctx context.Context, s Submission) (Outcome, error) { //nolint:gocritic // hugeParam: marshalled once
	body, err := json.Marshal(s)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("marshal deal: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/deals", body)
	if err != nil {
		return OutcomeFailed, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusAccepted:
		_, _ = io.Copy(io.Discard, resp.Body)
		return OutcomeAccepted, nil
	case http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return OutcomeDuplicate, nil
	default:
		raw, _ := io.ReadAll(resp.Body)
		return OutcomeFailed, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, bytes.TrimSpace(raw))
	}
}

// Standings fetches the top n partners.
func (c *Client) Standings(ctx context.Context, n int) ([]Standing, error) {
	var out []Standing
	if err := c.getJSON(ctx, "/partners?limit="+strconv.Itoa(n), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches ledger totals.
func (c *Client) Stats(ctx context.Context) (LedgerStats, error) {
	var out LedgerStats
	err := c.getJSON(ctx, "/stats", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s status %d", ErrRejected, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
