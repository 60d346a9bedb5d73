package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caselens/caselens/internal/logging"
)

// defaultHTTPTimeout is the per-request timeout for non-streaming calls.
const defaultHTTPTimeout = 30 * time.Second

// Client talks to the analysis pipeline's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates an API client for the given base URL. The URL must not
// end with a trailing slash; request paths are joined as baseURL + "/...".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultHTTPTimeout},
		log:     logging.New("api"),
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type caseRequest struct {
	Text string `json:"text"`
}

type caseResponse struct {
	RunID string `json:"run_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// CreateCase submits a case narrative and returns the server-assigned run id.
// A non-success response surfaces the body's "detail" message verbatim when
// present, otherwise a status-derived message.
func (c *Client) CreateCase(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(caseRequest{Text: text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/case", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Debug("create case", "url", c.baseURL+"/case")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("case request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s", errorDetail(resp.StatusCode, data))
	}

	var parsed caseResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse case response: %w", err)
	}
	if parsed.RunID == "" {
		return "", fmt.Errorf("server returned empty run id")
	}
	return parsed.RunID, nil
}

// GetCase fetches the final result snapshot for a run. This is the
// non-streaming retrieval fallback.
func (c *Client) GetCase(ctx context.Context, runID string) (FinalResult, error) {
	var result FinalResult

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/case/"+runID, nil)
	if err != nil {
		return result, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return result, fmt.Errorf("case fetch failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result, fmt.Errorf("%s", errorDetail(resp.StatusCode, data))
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("failed to parse case result: %w", err)
	}
	return result, nil
}

// Health probes the server liveness endpoint. Failures are swallowed to
// false rather than propagated.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

type passwordRequest struct {
	Password string `json:"password"`
}

type passwordResponse struct {
	Valid bool `json:"valid"`
}

// ValidatePassword checks the access-gate password.
func (c *Client) ValidatePassword(ctx context.Context, password string) (bool, error) {
	body, err := json.Marshal(passwordRequest{Password: password})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/validate-password", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("password check failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("%s", errorDetail(resp.StatusCode, data))
	}

	var parsed passwordResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return false, fmt.Errorf("failed to parse password response: %w", err)
	}
	return parsed.Valid, nil
}

// errorDetail extracts the server's "detail" message from an error response
// body, falling back to a status-derived message.
func errorDetail(status int, body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return fmt.Sprintf("request failed with status %d", status)
}
