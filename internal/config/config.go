package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/journal"
	"github.com/hashicorp-forge/dirsync/pkg/validate"
)

const (
	DefaultLogLevel    = "info"
	DefaultJournalPath = ".dirsync/journal.db"
)

// Config contains the configuration for dirsync.
type Config struct {
	// BaseURL is the Directory API root, e.g. "https://qmplus.app/api".
	BaseURL string `hcl:"base_url,optional"`

	// TenantID and APIToken authenticate every request.
	TenantID string `hcl:"tenant_id,optional"`
	APIToken string `hcl:"api_token,optional"`

	// TLSVerify disables certificate verification when set to false.
	TLSVerify *bool `hcl:"tls_verify,optional"`

	// Durations are Go duration strings such as "30s".
	Timeout      string `hcl:"timeout,optional"`
	RetryDelay   string `hcl:"retry_delay,optional"`
	PollInterval string `hcl:"poll_interval,optional"`

	// MaxRetries is a pointer so that an explicit 0 disables retries.
	MaxRetries *int `hcl:"max_retries,optional"`
	BatchSize  int  `hcl:"batch_size,optional"`

	// LogLevel is one of trace, debug, info, warn or error.
	LogLevel string `hcl:"log_level,optional"`

	// LogDir enables JSON log files when set.
	LogDir string `hcl:"log_dir,optional"`

	// Journal configures the local run journal.
	Journal *Journal `hcl:"journal,block"`
}

// Journal configures the local run journal.
type Journal struct {
	// Disabled turns off journaling.
	Disabled bool `hcl:"disabled,optional"`

	// Driver is "sqlite" or "postgres".
	Driver string `hcl:"driver,optional"`

	// Path is the SQLite database file.
	Path string `hcl:"path,optional"`

	// DSN is the PostgreSQL connection string.
	DSN string `hcl:"dsn,optional"`
}

// Load builds a Config from an optional HCL file at path, environment
// overrides read through getenv, and defaults. An empty path skips the file.
func Load(fs afero.Fs, path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := fs.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", path)
		}
		src, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := hclsimple.Decode(path, src, nil, cfg); err != nil {
			return nil, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with environment variables. API_TIMEOUT is
// in milliseconds.
func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.BaseURL, "QMPLUS_BASE_URL")
	setString(&c.TenantID, "QMPLUS_TENANT_ID", "QM_TENANT_ID")
	setString(&c.APIToken, "QMPLUS_API_TOKEN", "QM_API_TOKEN")
	setString(&c.LogLevel, "DIRSYNC_LOG_LEVEL", "LOG_LEVEL")
	setString(&c.LogDir, "DIRSYNC_LOG_DIR", "LOG_DIR")

	if v := getenv("API_TIMEOUT"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = (time.Duration(ms) * time.Millisecond).String()
	}
	if v := getenv("API_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_RETRY_ATTEMPTS %q: %w", v, err)
		}
		c.MaxRetries = &n
	}
	if v := getenv("API_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_BATCH_SIZE %q: %w", v, err)
		}
		c.BatchSize = n
	}

	return nil
}

func (c *Config) applyDefaults() {
	defaults := directory.DefaultConfig()

	if c.TLSVerify == nil {
		c.TLSVerify = defaults.TLSVerify
	}
	if c.Timeout == "" {
		c.Timeout = defaults.Timeout.String()
	}
	if c.RetryDelay == "" {
		c.RetryDelay = defaults.RetryDelay.String()
	}
	if c.PollInterval == "" {
		c.PollInterval = defaults.PollInterval.String()
	}
	if c.MaxRetries == nil {
		n := defaults.MaxRetries
		c.MaxRetries = &n
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Journal == nil {
		c.Journal = &Journal{}
	}
	if c.Journal.Driver == "" {
		c.Journal.Driver = journal.DriverSQLite
	}
	if c.Journal.Driver == journal.DriverSQLite && c.Journal.Path == "" {
		c.Journal.Path = DefaultJournalPath
	}
}

// ValidateLocal checks the settings that do not involve the API credentials.
func (c *Config) ValidateLocal() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.By(positiveDuration)),
		validation.Field(&c.RetryDelay, validation.By(nonNegativeDuration)),
		validation.Field(&c.PollInterval, validation.By(nonNegativeDuration)),
		validation.Field(&c.MaxRetries, validation.By(nonNegative)),
		validation.Field(&c.BatchSize, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.LogLevel, validation.By(logLevel)),
		validation.Field(&c.Journal),
	)
}

// Validate checks the whole configuration, including the credentials needed
// to reach the API.
func (c *Config) Validate() error {
	if err := validate.AuthConfig(c.BaseURL, c.TenantID, c.APIToken); err != nil {
		return err
	}
	return c.ValidateLocal()
}

// Validate implements validation.Validatable.
func (j Journal) Validate() error {
	return validation.ValidateStruct(&j,
		validation.Field(&j.Driver, validation.In(journal.DriverSQLite, journal.DriverPostgres)),
		validation.Field(&j.Path, validation.When(!j.Disabled && j.Driver == journal.DriverSQLite, validation.Required)),
		validation.Field(&j.DSN, validation.When(!j.Disabled && j.Driver == journal.DriverPostgres, validation.Required)),
	)
}

// ClientConfig converts the configuration for the Directory API client.
func (c *Config) ClientConfig() (*directory.Config, error) {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	retryDelay, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("invalid retry_delay: %w", err)
	}
	pollInterval, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid poll_interval: %w", err)
	}

	maxRetries := directory.DefaultConfig().MaxRetries
	if c.MaxRetries != nil {
		maxRetries = *c.MaxRetries
	}

	return &directory.Config{
		BaseURL:      c.BaseURL,
		TenantID:     c.TenantID,
		APIToken:     c.APIToken,
		TLSVerify:    c.TLSVerify,
		Timeout:      timeout,
		MaxRetries:   maxRetries,
		RetryDelay:   retryDelay,
		BatchSize:    c.BatchSize,
		PollInterval: pollInterval,
	}, nil
}

// JournalConfig returns the journal database settings. ok is false when the
// journal is disabled.
func (c *Config) JournalConfig() (cfg journal.Config, ok bool) {
	if c.Journal == nil || c.Journal.Disabled {
		return journal.Config{}, false
	}
	return journal.Config{
		Driver: c.Journal.Driver,
		Path:   c.Journal.Path,
		DSN:    c.Journal.DSN,
	}, true
}

// HCLogLevel returns the configured log level.
func (c *Config) HCLogLevel() hclog.Level {
	if l := hclog.LevelFromString(c.LogLevel); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

func positiveDuration(value any) error {
	s, _ := value.(string)
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration such as \"30s\"")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func nonNegativeDuration(value any) error {
	s, _ := value.(string)
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration such as \"1s\"")
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func nonNegative(value any) error {
	n, ok := value.(*int)
	if !ok || n == nil {
		return nil
	}
	if *n < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func logLevel(value any) error {
	s, _ := value.(string)
	if hclog.LevelFromString(s) == hclog.NoLevel {
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
	return nil
}
