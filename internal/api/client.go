// Package api talks to the Linear GraphQL API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linctl/linctl/internal/config"
)

// RequestIDHeader carries the client-generated ID of each GraphQL request.
const RequestIDHeader = "X-Request-Id"

var (
	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("no API key configured (set " + config.EnvAPIKey + " or api_key in the config file)")
	// ErrGraphQL wraps errors reported in a GraphQL response body.
	ErrGraphQL = errors.New("graphql error")
)

// Client is a Linear GraphQL client. It is safe for concurrent use.
type Client struct {
	endpoint string
	client   *http.Client

	mu     sync.RWMutex
	apiKey string
}

// New creates a client from cfg. It fails when no API key is set.
func New(cfg *config.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// SetAPIKey replaces the key used for subsequent requests. Empty keys are
// ignored.
func (c *Client) SetAPIKey(key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

func (c *Client) key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Query runs a GraphQL query and returns the decoded response document,
// including its top-level "data" key.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any) (any, error) {
	return c.do(ctx, query, vars)
}

// Mutate runs a GraphQL mutation.
func (c *Client) Mutate(ctx context.Context, mutation string, vars map[string]any) (any, error) {
	return c.do(ctx, mutation, vars)
}

// Fetch runs a query for the watch engine.
func (c *Client) Fetch(ctx context.Context, query string, vars map[string]any) (any, error) {
	return c.do(ctx, query, vars)
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any) (any, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.key())
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linear request %s failed: %w", reqID, err)
	}
	defer resp.Body.Close()
	slog.Debug("api: request", "request_id", reqID, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("linear API error (%s, request %s): %s", resp.Status, reqID, strings.TrimSpace(string(msg)))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if raw, ok := result["errors"].([]any); ok && len(raw) > 0 {
		var msgs []string
		for _, e := range raw {
			if m, ok := e.(map[string]any); ok {
				if s, ok := m["message"].(string); ok {
					msgs = append(msgs, s)
				}
			}
		}
		if len(msgs) == 0 {
			msgs = append(msgs, "unknown error")
		}
		return nil, fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(msgs, "; "))
	}

	return result, nil
}

// FetchToWriter streams an authenticated GET of url into w and returns the
// number of bytes written.
func (c *Client) FetchToWriter(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", c.key())

	// Downloads may legitimately run longer than the GraphQL timeout.
	download := &http.Client{Transport: c.client.Transport}
	resp, err := download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("download failed (%s): %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download interrupted after %d bytes: %w", n, err)
	}
	return n, nil
}
