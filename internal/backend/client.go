package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"happdash/internal/config"
	"happdash/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client talks to the reservation engine. Stateless, no caching; every call
// carries a fixed timeout budget and a request id.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewClient(cfg config.BackendConfig, logger *zerolog.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{},
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// ListPlans fetches plans, optionally filtered by status.
func (c *Client) ListPlans(ctx context.Context, status string) (*PlanListRaw, error) {
	path := "/plans"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	var out PlanListRaw
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPlan fetches one plan with its embedded task chain.
func (c *Client) GetPlan(ctx context.Context, id string) (*PlanRaw, error) {
	var out PlanRaw
	if err := c.do(ctx, http.MethodGet, "/plans/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePlan(ctx context.Context, req CreatePlanRequest) (*PlanRaw, error) {
	var out PlanRaw
	if err := c.do(ctx, http.MethodPost, "/plans", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePlan(ctx context.Context, id string, req UpdatePlanRequest) (*PlanRaw, error) {
	var out PlanRaw
	if err := c.do(ctx, http.MethodPatch, "/plans/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePlan(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/plans/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DashboardStats(ctx context.Context) (*StatsRaw, error) {
	var out StatsRaw
	if err := c.do(ctx, http.MethodGet, "/dashboard/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DashboardEvents(ctx context.Context) ([]TaskEventRaw, error) {
	var out []TaskEventRaw
	if err := c.do(ctx, http.MethodGet, "/dashboard/events", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &APIError{Kind: KindConnection, Message: err.Error()}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := classifyTransportError(ctx, err)
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Err(apiErr).
			Msg("backend request failed")
		metrics.ObserveBackendRequest(method, "error", time.Since(start))
		return apiErr
	}
	defer resp.Body.Close()

	metrics.ObserveBackendRequest(method, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Message:    decodeErrorBody(raw),
		}
		c.logger.Warn().
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Int("status", resp.StatusCode).
			Msg("backend returned error status")
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start)).
		Msg("backend request ok")

	return nil
}

func classifyTransportError(ctx context.Context, err error) *APIError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &APIError{Kind: KindTimeout, Message: err.Error()}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &APIError{Kind: KindTimeout, Message: err.Error()}
	}

	return &APIError{Kind: KindConnection, Message: err.Error()}
}
