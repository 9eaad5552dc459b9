// Package httpretry wraps provider HTTP calls with retries and a token bucket.
//
// Retries use exponential backoff on network errors, 408, 429 and 5xx.
// A Retry-After header in seconds overrides the next delay.
package httpretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/logger"
)

// Defaults applied when Config fields are zero.
const (
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
	HeaderRetryAfter       = "Retry-After"
)

// Config tunes a Client.
type Config struct {
	// Provider names the upstream in errors and logs.
	Provider string

	// MaxRetries is the total number of attempts.
	MaxRetries int

	// RequestsPerSecond caps the request rate. Zero disables the limiter.
	RequestsPerSecond float64

	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration

	// MaxInterval caps each backoff delay, including Retry-After.
	MaxInterval time.Duration
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends requests with retry and rate limiting.
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	provider string
	tries    uint
	initial  time.Duration
	max      time.Duration
}

// New creates a Client around httpClient. A nil httpClient uses http.DefaultClient.
func New(httpClient *http.Client, cfg Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}

	c := &Client{
		http:     httpClient,
		provider: cfg.Provider,
		tries:    uint(cfg.MaxRetries),
		initial:  cfg.InitialInterval,
		max:      cfg.MaxInterval,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// RequestFunc builds a fresh request for each attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do sends the request built by build until it succeeds, fails permanently,
// or runs out of attempts. Any 2xx response is returned; other statuses
// become a *domain.ProviderError.
func (c *Client) Do(ctx context.Context, build RequestFunc) (*Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxInterval = c.max

	var lastErr *domain.ProviderError
	attempt := 0
	op := func() (*Response, error) {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, backoff.Permanent(err)
			}
		}

		req, err := build(ctx)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil || !IsRetryableError(err) {
				return nil, backoff.Permanent(c.providerError(0, false, err))
			}
			logger.Debug("%s: attempt %d failed: %v", c.provider, attempt, err)
			return nil, c.providerError(0, true, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, c.providerError(resp.StatusCode, true, fmt.Errorf("read response: %w", err))
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
		}

		perr := c.providerError(resp.StatusCode, IsRetryableStatus(resp.StatusCode),
			errors.New(errorMessage(body)))
		if !perr.Retryable {
			return nil, backoff.Permanent(perr)
		}
		logger.Debug("%s: attempt %d got status %d", c.provider, attempt, resp.StatusCode)
		if secs := RetryAfterSeconds(resp.Header, c.max); secs > 0 {
			lastErr = perr
			return nil, backoff.RetryAfter(secs)
		}
		return nil, perr
	}

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.tries),
	)
	if err != nil {
		var ra *backoff.RetryAfterError
		if errors.As(err, &ra) && lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) providerError(status int, retryable bool, err error) *domain.ProviderError {
	return &domain.ProviderError{
		Provider:   c.provider,
		StatusCode: status,
		Retryable:  retryable,
		Err:        err,
	}
}

// IsRetryableStatus reports whether an HTTP status is worth retrying.
func IsRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether a transport error is worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// RetryAfterSeconds parses a Retry-After header given in seconds, capped at max.
// It returns 0 when the header is absent or not a positive integer.
func RetryAfterSeconds(h http.Header, max time.Duration) int {
	ra := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil || secs <= 0 {
		return 0
	}
	if limit := int(max / time.Second); limit > 0 && secs > limit {
		return limit
	}
	return secs
}

// errorMessage trims a provider error body for inclusion in an error.
func errorMessage(body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
