package retry

import (
	"fmt"
	"net/http"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 500 * time.Millisecond
	defaultMaxDelay     = 8 * time.Second
)

// Checker decides whether an attempt should be retried.
type Checker func(err error, resp *http.Response) bool

// Client wraps an http.Client with bounded exponential backoff.
type Client struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	httpClient   *http.Client
	retryable    Checker
}

type Option func(*Client)

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithChecker(fn Checker) Option {
	return func(c *Client) {
		if fn != nil {
			c.retryable = fn
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
		httpClient:   http.DefaultClient,
		retryable:    DefaultChecker,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultChecker retries network errors, 5xx responses and 429s.
func DefaultChecker(err error, resp *http.Response) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
}

// Do executes the request, retrying retryable failures with exponential
// backoff. The request context bounds the whole sequence: a cancelled or
// timed-out context aborts between attempts.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	delay := c.initialDelay

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				if lastErr != nil {
					return nil, fmt.Errorf("cancelled after %d attempts: %w", attempt, lastErr)
				}
				return nil, ctx.Err()
			case <-time.After(delay):
				delay *= 2
				if delay > c.maxDelay {
					delay = c.maxDelay
				}
			}
		}

		// clone per attempt, the body may have been consumed
		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			clone.Body = body
		}
		resp, lastErr = c.httpClient.Do(clone)

		if !c.retryable(lastErr, resp) {
			return resp, lastErr
		}

		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
	}
	return resp, nil
}
