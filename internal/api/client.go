package api

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

	"github.com/waabox/deploydeck/internal/domain"
	"github.com/waabox/deploydeck/internal/event"
)

const defaultBaseURL = "http://localhost:8000"

// StatusError is returned when the server answers with HTTP 4xx or 5xx.
type StatusError struct {
	Endpoint string
	Code     int
	Status   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pipeline API error: %s %s", e.Endpoint, e.Status)
}

// Client implements domain.PipelineAPI over the server's REST endpoints.
type Client struct {
	baseURL string
	client  *http.Client
}

// Ensure Client fully implements domain.PipelineAPI.
var _ domain.PipelineAPI = (*Client)(nil)

// NewClient creates a pipeline API client.
// Pass an empty baseURL to use the local development server.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchSteps returns the ordered step list of the current pipeline run.
func (c *Client) FetchSteps(ctx context.Context) ([]domain.PipelineStep, error) {
	var result struct {
		Steps json.RawMessage `json:"steps"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pipeline/steps", nil, &result); err != nil {
		return nil, err
	}
	if len(result.Steps) == 0 || string(result.Steps) == "null" {
		return nil, nil
	}
	return event.DecodeSteps(result.Steps)
}

// StartPipeline asks the server to start a run for repo. Any 2xx answer is success.
func (c *Client) StartPipeline(ctx context.Context, repo domain.Repository) error {
	body := struct {
		Owner    string `json:"owner"`
		RepoName string `json:"repo_name"`
	}{Owner: repo.Owner, RepoName: repo.Name}
	return c.do(ctx, http.MethodPost, "/api/pipeline/start", body, nil)
}

// SendChatMessage is the request/response fallback used when the channel is down.
// The timestamp is sent as milliseconds since the epoch.
func (c *Client) SendChatMessage(ctx context.Context, message string, at time.Time) (string, error) {
	body := struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}{Message: message, Timestamp: strconv.FormatInt(at.UnixMilli(), 10)}
	var result struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/message", body, &result); err != nil {
		return "", err
	}
	return result.Response, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, target interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &StatusError{Endpoint: path, Code: resp.StatusCode, Status: resp.Status}
	}
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
