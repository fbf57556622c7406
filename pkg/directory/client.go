package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

const (
	headerTenantID  = "auth-tenant-id"
	headerAuthToken = "auth-token"
	headerRequestID = "X-Request-Id"
)

// Client talks to the Directory provisioning API of a single tenant.
type Client struct {
	config *Config
	http   *http.Client
	logger hclog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards output.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a new Directory API client.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid directory client config: %w", err)
	}

	c := &Client{
		config: cfg,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = cfg.NewHTTPClient()
	}

	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config {
	return c.config
}

// newBackOff returns the retry schedule for one logical request.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.config.RetryDelay
	exp.MaxElapsedTime = 0
	if exp.InitialInterval <= 0 {
		exp.InitialInterval = time.Millisecond
	}

	return backoff.WithContext(
		backoff.WithMaxRetries(exp, uint64(c.config.MaxRetries)),
		ctx,
	)
}

// doRequest performs an HTTP request against the API with retries on network
// failures and 5xx responses. On success the JSON body is decoded into result
// when result is non-nil.
func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	query url.Values,
	body, result any,
) error {
	endpoint := c.buildURL(path, query)

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	requestID := uuid.NewString()
	logger := c.logger.With("method", method, "path", path, "request_id", requestID)

	var respBody []byte
	attempt := 0
	op := func() error {
		attempt++

		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		req.Header.Set(headerTenantID, c.config.TenantID)
		req.Header.Set(headerAuthToken, c.config.APIToken)
		req.Header.Set(headerRequestID, requestID)
		req.Header.Set("Accept", "application/json")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		logger.Trace("sending request", "attempt", attempt)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return &APIError{
				Kind:    KindNetwork,
				Message: "unable to reach Directory API",
				Err:     err,
			}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &APIError{
				Kind:    KindNetwork,
				Message: "failed to read response",
				Err:     err,
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := newStatusError(resp.StatusCode, data)
			if apiErr.Retryable() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		respBody = data
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("request failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			logger.Error("API error occurred",
				"kind", apiErr.Kind,
				"status", apiErr.StatusCode,
				"message", apiErr.Message,
				"attempts", attempt,
			)
		}
		return err
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Do performs a request against any API path with the client's credentials,
// retries and error classification. It serves endpoints outside the
// provisioning API.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	return c.doRequest(ctx, method, path, query, body, result)
}

// buildURL joins the base URL and path and encodes query.
func (c *Client) buildURL(path string, query url.Values) string {
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}
