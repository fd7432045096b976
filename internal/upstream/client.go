// Package upstream is the typed HTTP client for the YouthLoop backend API.
// All business logic lives behind it; this service only relays calls and
// surfaces typed DTOs or an *Error whose Message is shown to the user.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Client talks to the YouthLoop backend. Outbound requests pass a shared
// rate limiter so a hot gateway cannot stampede the API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// Config carries the client settings.
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	RateBurst     int
}

// New creates a client for the given backend.
func New(cfg Config) *Client {
	limit := rate.Limit(cfg.RatePerSecond)
	if cfg.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Auth returns the authentication namespace.
func (c *Client) Auth() *AuthAPI {
	return &AuthAPI{client: c}
}

// User returns the profile namespace.
func (c *Client) User() *UserAPI {
	return &UserAPI{client: c}
}

// Notifications returns the inbox namespace.
func (c *Client) Notifications() *NotificationAPI {
	return &NotificationAPI{client: c}
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/system/health", "", nil, nil, nil)
}

// envelope is the backend's uniform response wrapper. Code zero is success;
// any other code carries a user-facing message.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	TraceID string          `json:"traceId,omitempty"`
	Data    json.RawMessage `json:"data"`
}

// request is the backend's uniform write wrapper.
type request struct {
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(request{RequestID: uuid.New().String(), Data: body})
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		if resp.StatusCode >= 400 {
			return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if env.Code != 0 || resp.StatusCode >= 400 {
		return &Error{
			Status:  resp.StatusCode,
			Code:    env.Code,
			Message: env.Message,
			TraceID: env.TraceID,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode payload from %s: %w", path, err)
		}
	}

	return nil
}
