// internal/common/http/client.go
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrStatus is wrapped by Fetch when the server answers with a non-2xx code.
var ErrStatus = errors.New("unexpected response status")

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body exceeds limit")

type Client struct {
	httpClient *http.Client
	maxBytes   int64
	maxRetries int
	backoff    func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithMaxBytes bounds the size of fetched bodies. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		c.maxBytes = n
	}
}

// WithMaxRetries sets how many times a failed fetch is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackOff replaces the retry schedule, mostly for tests.
func WithBackOff(factory func() backoff.BackOff) Option {
	return func(c *Client) {
		c.backoff = factory
	}
}

func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch GETs url and returns the whole body. Transport errors and 5xx
// responses are retried; 4xx responses and oversized bodies are not.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	operation := func() error {
		data, err := c.fetchOnce(ctx, url)
		if err != nil {
			return err
		}
		body = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.backoff(), uint64(c.maxRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		if resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, backoff.Permanent(ErrTooLarge)
	}
	return data, nil
}
