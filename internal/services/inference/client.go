package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"stratos/internal/fileutil"
	"stratos/internal/services"
)

const (
	defaultHTTPTimeout    = 30 * time.Minute
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultPlaceholder    = "+"
	maxResponseBytes      = 1 << 20
)

// Operation names understood by the backend.
const (
	OpTranscribe = "transcribe"
	OpSlowmo     = "slowmo"
	OpFPSBoost   = "fpsboost"
)

// Param is one option passed to the backend. Order is preserved on the wire.
type Param struct {
	Key   string
	Value string
}

// Request describes a single backend call.
type Request struct {
	Operation string
	// InputPath is the artifact the backend reads.
	InputPath string
	Params    []Param
	// ExpectedOutput is where the backend is expected to write its artifact
	// when the response does not say otherwise.
	ExpectedOutput string
	// ScratchDir bounds where a confirmed output may live.
	ScratchDir string
}

// Result describes the artifact produced by the backend.
type Result struct {
	OutputPath string
	// Confirmed is true when the backend named OutputPath in its response.
	Confirmed bool
	Format    string
	Duration  time.Duration
}

type responseBody struct {
	OutputPath      string  `json:"output_path"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Client calls the inference backend.
type Client struct {
	baseURL     string
	placeholder string
	httpClient  *http.Client
	timeout     time.Duration

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetryMaxAttempts sets the total number of attempts per request (defaults to 1).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithPathPlaceholder sets the character substituted for "/" in input paths.
func WithPathPlaceholder(placeholder string) Option {
	return func(c *Client) {
		if p := strings.TrimSpace(placeholder); p != "" {
			c.placeholder = p
		}
	}
}

// NewClient constructs a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:          strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		placeholder:      defaultPlaceholder,
		timeout:          defaultHTTPTimeout,
		retryMaxAttempts: 1,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}
	return client
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

// Run issues the request and resolves the produced artifact. Every failure is
// tagged with services.ErrInferenceFailed.
func (c *Client) Run(ctx context.Context, req Request) (Result, error) {
	op := strings.TrimSpace(req.Operation)
	fail := func(msg string, err error) (Result, error) {
		return Result{}, services.Wrap(services.ErrInferenceFailed, "inference", op, msg, err)
	}
	if op == "" {
		return fail("operation required", nil)
	}
	if strings.TrimSpace(req.InputPath) == "" {
		return fail("input path required", nil)
	}
	if c.baseURL == "" {
		return fail("backend url not configured", nil)
	}

	endpoint := c.Endpoint(op, req.InputPath, req.Params)
	body, err := c.postWithRetry(ctx, endpoint)
	if err != nil {
		return fail("request failed", err)
	}

	result, err := c.resolve(req, body)
	if err != nil {
		return fail("resolve output", err)
	}
	return result, nil
}

// Endpoint builds the request URL for op.
func (c *Client) Endpoint(op, inputPath string, params []Param) string {
	encodedPath := strings.ReplaceAll(inputPath, "/", c.placeholder)
	pairs := make([]string, 0, len(params))
	for _, p := range params {
		pairs = append(pairs, url.PathEscape(p.Key)+"-"+url.PathEscape(p.Value))
	}
	return c.baseURL + "/" + url.PathEscape(op) + "/" + url.PathEscape(encodedPath) + "/" + strings.Join(pairs, ",")
}

func (c *Client) resolve(req Request, body []byte) (Result, error) {
	var parsed responseBody
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return Result{}, fmt.Errorf("decode response: %w", err)
		}
	}

	result := Result{
		Format:   strings.TrimSpace(parsed.Format),
		Duration: time.Duration(parsed.DurationSeconds * float64(time.Second)),
	}

	if reported := strings.TrimSpace(parsed.OutputPath); reported != "" {
		if !filepath.IsAbs(reported) && req.ScratchDir != "" {
			reported = filepath.Join(req.ScratchDir, reported)
		}
		if req.ScratchDir != "" && !fileutil.Within(req.ScratchDir, reported) {
			return Result{}, fmt.Errorf("backend output %s is outside scratch directory %s", reported, req.ScratchDir)
		}
		result.OutputPath = filepath.Clean(reported)
		result.Confirmed = true
		return result, nil
	}

	expected := strings.TrimSpace(req.ExpectedOutput)
	if expected == "" {
		return Result{}, errors.New("backend did not report an output path")
	}
	if !fileutil.Exists(expected) {
		return Result{}, fmt.Errorf("backend did not report an output path and %s does not exist", expected)
	}
	result.OutputPath = expected
	return result, nil
}

// HealthCheck verifies the backend answers HTTP at all. Any response status
// counts as reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.baseURL == "" {
		return errors.New("inference health: backend url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("inference health: new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference health: %w", err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	return nil
}

func (c *Client) postWithRetry(ctx context.Context, endpoint string) ([]byte, error) {
	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.postOnce(ctx, endpoint)
		if err == nil {
			return body, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	if attempts > 1 {
		return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
	}
	return nil, lastErr
}

func (c *Client) postOnce(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error (timeout=%s): %w", c.timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) retryAttempts() int {
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= http.StatusInternalServerError {
			return c.backoffDelay(attempt), true
		}
		return 0, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
