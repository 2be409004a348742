// Package probe checks that the game server answers plain HTTP before a
// websocket session is attempted.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

type Client struct {
	http *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
	userAgent      string
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		defaultTimeout: 5 * time.Second,
		retryMax:       3,
		userAgent:      "cheese-chess-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes the last response seen.
type Result struct {
	Status   int
	Body     string
	Attempts int
	Latency  time.Duration
}

// Check issues GET url, retrying transport errors and 5xx responses with a
// short backoff. Any 2xx is healthy.
func (c *Client) Check(ctx context.Context, url string) (Result, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()
	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(url)
	req.Header.SetUserAgent(c.userAgent)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var res Result
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt
		start := time.Now()
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		res.Latency = time.Since(start)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			res.Status = resp.StatusCode()
			res.Body = truncate(string(resp.Body()), 512)
			if res.Status >= 200 && res.Status < 300 {
				return res, nil
			}
			lastErr = fmt.Errorf("health check: status=%d body=%s", res.Status, res.Body)
			if !shouldRetryStatus(res.Status) {
				return res, lastErr
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return res, lastErr
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return res, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
