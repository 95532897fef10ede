// Package transport is the request pipeline every outbound call goes through:
// header injection, loading bookkeeping, timing, retries, error normalization
// and user notification.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/mmcdole/booksync/internal/domain"
	"github.com/mmcdole/booksync/internal/loading"
	"github.com/mmcdole/booksync/internal/retry"
)

const (
	// DefaultTimeout bounds each attempt
	DefaultTimeout = 30 * time.Second

	// HealthTimeout bounds the lightweight health check
	HealthTimeout = 5 * time.Second

	clientName = "booksync"
)

// DefaultBackgroundPaths are path fragments whose failures are never surfaced to the user
var DefaultBackgroundPaths = []string{"/sync/status"}

// Config holds pipeline settings
type Config struct {
	BaseURL         string        // server root, e.g. http://nas:8000
	APIPrefix       string        // e.g. /api/v1
	Timeout         time.Duration // per attempt
	Policy          retry.Policy
	BackgroundPaths []string
	RateLimit       float64 // requests per second; 0 disables
	Burst           int
	Version         string
}

// Client executes Requests against the sync service
type Client struct {
	baseURL    string
	apiPrefix  string
	timeout    time.Duration
	policy     retry.Policy
	background []string
	userAgent  string

	httpClient *http.Client
	limiter    *rate.Limiter
	loading    *loading.Counter
	notifier   domain.Notifier
	clock      clockwork.Clock
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNotifier sets the user notification sink
func WithNotifier(n domain.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLoadingCounter shares a loading counter between clients
func WithLoadingCounter(counter *loading.Counter) Option {
	return func(c *Client) { c.loading = counter }
}

// WithClock overrides the time source used for timing and retry delays
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a pipeline client
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	background := cfg.BackgroundPaths
	if background == nil {
		background = DefaultBackgroundPaths
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiPrefix:  "/" + strings.Trim(cfg.APIPrefix, "/"),
		timeout:    timeout,
		policy:     cfg.Policy,
		background: background,
		userAgent:  clientName + "/" + version,
		httpClient: &http.Client{},
		notifier:   domain.NoOpNotifier{},
		clock:      clockwork.NewRealClock(),
		logger:     slog.Default(),
	}
	if c.apiPrefix == "/" {
		c.apiPrefix = ""
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loading == nil {
		c.loading = loading.NewCounter(nil)
	}
	if c.notifier == nil {
		c.notifier = domain.NoOpNotifier{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Loading exposes the loading counter
func (c *Client) Loading() *loading.Counter { return c.loading }

// Do runs req to completion, retrying transient failures per the policy.
// Any returned error is a *domain.Error.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	release := c.loading.Acquire()
	defer release()

	start := c.clock.Now()
	attempt := 0

	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, c.cancelled(req, err)
			}
		}

		resp, code, body, err := c.dispatch(ctx, req)
		if err == nil {
			resp.Attempts = attempt + 1
			resp.Duration = c.clock.Since(start)
			c.logger.Debug("request completed",
				"op", req.Op, "method", req.Method, "path", req.Path,
				"status", resp.StatusCode, "attempts", resp.Attempts,
				"duration_ms", resp.Duration.Milliseconds())
			return resp, nil
		}

		if ctx.Err() != nil {
			return nil, c.cancelled(req, ctx.Err())
		}

		decision := c.policy.Decide(code, attempt)
		if !decision.Retry {
			return nil, c.fail(req, code, body, err, attempt+1, c.clock.Since(start))
		}

		c.logger.Info("retrying request",
			"op", req.Op, "method", req.Method, "path", req.Path,
			"status", code, "retry", attempt+1, "max_retries", c.policy.MaxRetries,
			"delay_ms", decision.Delay.Milliseconds())

		select {
		case <-ctx.Done():
			return nil, c.cancelled(req, ctx.Err())
		case <-c.clock.After(decision.Delay):
		}
		attempt++
	}
}

// dispatch performs one attempt. On failure it returns the status code the retry
// policy should see: 0 for connection failures, 408 for attempt timeouts.
func (c *Client) dispatch(ctx context.Context, req *Request) (*Response, int, []byte, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := c.resolve(req)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, reqURL, body)
	if err != nil {
		return nil, retry.StatusConnectionFailed, nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(httpReq, req.Header)

	c.logger.Debug("request", "op", req.Op, "method", req.Method, "url", reqURL)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == nil && isTimeout(attemptCtx, err) {
			return nil, http.StatusRequestTimeout, nil, fmt.Errorf("attempt timed out after %s: %w", timeout, err)
		}
		return nil, retry.StatusConnectionFailed, nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if ctx.Err() == nil && isTimeout(attemptCtx, err) {
			return nil, http.StatusRequestTimeout, nil, fmt.Errorf("reading response timed out: %w", err)
		}
		return nil, retry.StatusConnectionFailed, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, httpResp.StatusCode, respBody, &statusError{code: httpResp.StatusCode}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, httpResp.StatusCode, respBody, nil
}

func isTimeout(attemptCtx context.Context, err error) bool {
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) resolve(req *Request) string {
	reqURL := c.baseURL
	if !req.Root {
		reqURL += c.apiPrefix
	}
	reqURL += req.Path
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}
	return reqURL
}

// applyHeaders copies caller headers, then fills standard headers the caller left unset
func (c *Client) applyHeaders(httpReq *http.Request, caller http.Header) {
	for k, vs := range caller {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	setDefault(httpReq.Header, "Content-Type", "application/json")
	setDefault(httpReq.Header, "Accept", "application/json")
	setDefault(httpReq.Header, "X-Requested-With", "XMLHttpRequest")
	setDefault(httpReq.Header, "X-Client-Name", clientName)
	setDefault(httpReq.Header, "User-Agent", c.userAgent)
}

func setDefault(h http.Header, key, value string) {
	if h.Get(key) == "" {
		h.Set(key, value)
	}
}

// IsBackground reports whether failures of req stay silent
func (c *Client) IsBackground(req *Request) bool {
	if req.Background {
		return true
	}
	for _, p := range c.background {
		if p != "" && strings.Contains(req.Path, p) {
			return true
		}
	}
	return false
}

func (c *Client) fail(req *Request, code int, body []byte, cause error, attempts int, elapsed time.Duration) *domain.Error {
	apiErr := &domain.Error{
		Kind:       classify(c.policy, code),
		Message:    userMessage(code, body),
		StatusCode: code,
		Op:         req.Op,
		Err:        cause,
	}

	attrs := []any{
		"op", req.Op, "method", req.Method, "path", req.Path,
		"status", code, "kind", apiErr.Kind.String(), "attempts", attempts,
		"duration_ms", elapsed.Milliseconds(), "error", cause,
	}
	if c.IsBackground(req) {
		c.logger.Warn("background request failed", attrs...)
		return apiErr
	}

	c.logger.Error("request failed", attrs...)
	c.notifier.Notify(apiErr.Message, domain.SeverityError)
	return apiErr
}

// cancelled reports a request abandoned by its caller. Never notified.
func (c *Client) cancelled(req *Request, cause error) *domain.Error {
	c.logger.Debug("request cancelled", "op", req.Op, "path", req.Path, "error", cause)
	return &domain.Error{
		Kind:    domain.KindUnknown,
		Message: msgCancelled,
		Op:      req.Op,
		Err:     cause,
	}
}

// InvalidResponse reports a 2xx response whose body could not be used.
// It notifies like any other failure unless req is a background request.
func (c *Client) InvalidResponse(req *Request, cause error) *domain.Error {
	apiErr := &domain.Error{
		Kind:    domain.KindUnknown,
		Message: msgUnexpected,
		Op:      req.Op,
		Err:     cause,
	}
	if c.IsBackground(req) {
		c.logger.Warn("invalid background response", "op", req.Op, "path", req.Path, "error", cause)
		return apiErr
	}
	c.logger.Error("invalid response", "op", req.Op, "path", req.Path, "error", cause)
	c.notifier.Notify(apiErr.Message, domain.SeverityError)
	return apiErr
}

// DecodeJSON runs req and unmarshals the response body into T
func DecodeJSON[T any](ctx context.Context, c *Client, req *Request) (T, error) {
	var out T
	resp, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, c.InvalidResponse(req, err)
	}
	return out, nil
}
