package directory

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Config contains configuration for the Directory API client.
type Config struct {
	// BaseURL is the API root, e.g. "https://qmplus.app/api".
	BaseURL string

	// TenantID is sent in the auth-tenant-id header.
	TenantID string

	// APIToken is sent in the auth-token header.
	APIToken string `json:"-"`

	// TLSVerify controls TLS certificate verification. Set to false only for
	// development against self-signed certificates.
	TLSVerify *bool

	// Timeout for a single HTTP request.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxRetries for requests that fail with a network error or a 5xx status.
	// Zero disables retries; DefaultConfig sets 3.
	MaxRetries int

	// RetryDelay is the initial delay between retries; it grows exponentially.
	// Default: 1 second
	RetryDelay time.Duration

	// BatchSize is the number of users sent per request by BulkUserImport.
	// Default: 100
	BatchSize int

	// PollInterval is the delay between status checks in MonitorTransaction.
	// Default: 5 seconds
	PollInterval time.Duration
}

// DefaultConfig returns a Config with the default tuning values and no
// endpoint or credentials.
func DefaultConfig() *Config {
	tlsVerify := true
	return &Config{
		TLSVerify:    &tlsVerify,
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryDelay:   1 * time.Second,
		BatchSize:    100,
		PollInterval: 5 * time.Second,
	}
}

// applyDefaults fills zero values from DefaultConfig.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.TLSVerify == nil {
		c.TLSVerify = defaults.TLSVerify
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval == 0 {
		c.PollInterval = defaults.PollInterval
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https scheme, got: %s", parsedURL.Scheme)
	}

	if c.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if c.APIToken == "" {
		return fmt.Errorf("api_token is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %v", c.Timeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be non-negative, got: %v", c.RetryDelay)
	}
	if c.BatchSize < 1 || c.BatchSize > 1000 {
		return fmt.Errorf("batch_size must be between 1 and 1000, got: %d", c.BatchSize)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll_interval must be non-negative, got: %v", c.PollInterval)
	}

	return nil
}

// NewHTTPClient creates a configured HTTP client for the Directory API.
func (c *Config) NewHTTPClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if c.TLSVerify != nil && !*c.TLSVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &http.Client{
		Timeout:   c.Timeout,
		Transport: transport,
	}
}
