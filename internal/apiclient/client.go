// Package apiclient provides the resilient HTTP client used for every gateway call.
package apiclient

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

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"earnings-tracker/internal/config"
	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/logging"
	"earnings-tracker/internal/security"
	"earnings-tracker/pkg/utils"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second
	// DefaultRetryAttempts is the number of retries after the first attempt.
	DefaultRetryAttempts = 3
	// DefaultRetryDelay is the base delay; retry k waits k times this.
	DefaultRetryDelay = time.Second

	// AcceptJSON is the default Accept header.
	AcceptJSON = "application/json"
	// AcceptHTML suits press-release pages.
	AcceptHTML = "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"
	// AcceptCSV suits published data files.
	AcceptCSV = "text/csv,text/plain;q=0.9,*/*;q=0.8"
)

// emptyObject stands in for the body of a 204 response.
var emptyObject = []byte("{}")

// Client is a gateway client with retry on transport failures and 5xx responses.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	accept     string
	httpClient *http.Client
	retry      utils.RetryConfig
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry replaces the retry policy. Retryable is always forced to the
// transport-or-5xx rule.
func WithRetry(cfg utils.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithSleep overrides how the client waits between retries.
func WithSleep(sleep utils.SleepFunc) Option {
	return func(c *Client) {
		c.retry.Sleep = sleep
	}
}

// WithAPIKey sends key as X-API-Key on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithAccept sets the Accept header sent with every request.
func WithAccept(accept string) Option {
	return func(c *Client) {
		c.accept = accept
	}
}

// WithRateLimit paces requests client-side. Zero or negative disables pacing.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		accept:  AcceptJSON,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		retry: utils.RetryConfig{
			MaxRetries:   DefaultRetryAttempts,
			InitialDelay: DefaultRetryDelay,
			Strategy:     utils.BackoffLinear,
		},
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewFromConfig builds a client from the api and fetcher sections of cfg.
func NewFromConfig(cfg *config.Config, logger zerolog.Logger) *Client {
	return New(cfg.API.BaseURL,
		WithTimeout(cfg.API.Timeout),
		WithRetry(utils.RetryConfig{
			MaxRetries:    cfg.API.RetryAttempts,
			InitialDelay:  cfg.API.RetryDelay,
			MaxDelay:      cfg.API.MaxDelay,
			BackoffFactor: 2.0,
			Strategy:      utils.Backoff(cfg.API.Backoff),
		}),
		WithAPIKey(cfg.Credentials.Gateway.APIKey),
		WithRateLimit(cfg.Fetcher.RequestsPerSecond),
		WithLogger(logging.WithComponent(logger, "apiclient")),
	)
}

// Get issues a GET and decodes the JSON response into out, which may be nil.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	return c.Request(ctx, http.MethodGet, endpoint, query, nil, out)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, endpoint string, body, out interface{}) error {
	return c.Request(ctx, http.MethodPost, endpoint, nil, body, out)
}

// GetRaw issues a GET and returns the raw response body.
func (c *Client) GetRaw(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, endpoint, query, nil)
}

// Request performs a request with retry and decodes the JSON response into out.
func (c *Client) Request(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	data, err := c.Do(ctx, method, endpoint, query, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.NewAPIError(http.StatusOK, endpoint, "decoding response", err)
	}
	return nil
}

// Do performs a request with retry and returns the raw body. A 204 yields "{}".
// Transport failures and 5xx responses are retried; 4xx responses fail at once.
// On failure the error is always an *errors.APIError.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.NewAPIError(0, endpoint, "encoding request body", err)
		}
	}

	retry := c.retry
	retry.Retryable = errors.IsRetryable
	retry.OnRetry = func(n int, delay time.Duration, err error) {
		c.logger.Warn().
			Err(security.MaskError(err)).
			Str("endpoint", endpoint).
			Int("retry", n).
			Dur("delay", delay).
			Msg("Retrying gateway request")
	}

	attempt := 0
	return utils.RetryWithResult(ctx, retry, func() ([]byte, error) {
		attempt++
		start := time.Now()
		data, err := c.once(ctx, method, endpoint, query, payload)
		logging.LogAPICall(c.logger, method, endpoint, attempt, time.Since(start), security.MaskError(err))
		return data, err
	})
}

func (c *Client) once(ctx context.Context, method, endpoint string, query url.Values, payload []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewAPIError(0, endpoint, "rate limiter wait", err)
		}
	}

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, query.Encode())
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, errors.NewAPIError(0, endpoint, "creating request", err)
	}
	if c.accept != "" {
		req.Header.Set("Accept", c.accept)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewAPIError(0, endpoint, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return emptyObject, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAPIError(0, endpoint, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewAPIError(resp.StatusCode, endpoint, errorMessage(resp.StatusCode, data), nil)
	}

	return data, nil
}

// errorMessage prefers the gateway's {"error","message"} body over the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "" && payload.Message != "":
			return payload.Error + ": " + payload.Message
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}
	return http.StatusText(status)
}
