// Package remote tags text through an HTTP token-classification endpoint
// such as a Hugging Face inference server running a PII model.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crimson-sun/mailsift/internal/model"
)

// APIError represents a non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether the status is worth another attempt.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second. Zero means unlimited.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithRetries sets how many times a 429/5xx or transport failure is
// retried, and the first backoff interval.
func WithRetries(n int, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.initialInterval = initial
	}
}

// WithBreakerThreshold opens the circuit after n consecutive failed
// requests. The circuit half-opens again after the breaker timeout.
func WithBreakerThreshold(n uint32) Option {
	return func(c *Client) { c.breakerThreshold = n }
}

// WithMinScore drops entities scoring below s.
func WithMinScore(s float64) Option {
	return func(c *Client) { c.minScore = s }
}

// WithLogger sets the logger used for retry and breaker events.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.log = l }
}

// Client implements tagger.Tagger against a remote endpoint. It is safe
// for concurrent use.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	log        *zap.SugaredLogger

	maxRetries       int
	initialInterval  time.Duration
	breakerThreshold uint32
	minScore         float64
}

// New creates a Client posting to endpoint. token is sent as a Bearer
// token when non-empty.
func New(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:              zap.NewNop().Sugar(),
		maxRetries:       3,
		initialInterval:  time.Second,
		breakerThreshold: 5,
	}
	for _, opt := range opts {
		opt(c)
	}

	threshold := c.breakerThreshold
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tagger-remote",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client errors are the caller's fault, not the endpoint's.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.retryable()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warnw("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

// Tag posts text to the endpoint and returns the entities it reports.
// Empty text is not sent.
func (c *Client) Tag(ctx context.Context, text string) ([]model.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []model.Entity{}, nil
	}

	payload, err := json.Marshal(request{Inputs: text, Parameters: parameters{AggregationStrategy: "simple"}})
	if err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialInterval
	exp.MaxInterval = 30 * time.Second
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(exp, uint64(c.maxRetries))
	b = backoff.WithContext(b, ctx)

	var entities []model.Entity
	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.post(ctx, payload)
		})
		if err != nil {
			var apiErr *APIError
			switch {
			case errors.As(err, &apiErr) && !apiErr.retryable():
				return backoff.Permanent(err)
			case errors.Is(err, gobreaker.ErrOpenState), ctx.Err() != nil:
				return backoff.Permanent(err)
			}
			return err
		}
		entities = res.([]model.Entity)
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debugw("retrying tag request", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("remote: %w", err)
	}

	out := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Score >= c.minScore {
			out = append(out, e)
		}
	}
	return out, nil
}

// post sends one request. Returns *APIError for non-2xx responses.
func (c *Client) post(ctx context.Context, payload []byte) ([]model.Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(body)
		if len(bodyStr) > 512 {
			bodyStr = bodyStr[:512]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	var entities []model.Entity
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return entities, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
