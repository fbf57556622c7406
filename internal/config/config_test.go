package config

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

const testConfig = `
base_url      = "https://qmplus.app/api"
tenant_id     = "acme"
api_token     = "file-token"
timeout       = "10s"
max_retries   = 0
batch_size    = 250
poll_interval = "2s"
log_level     = "debug"

journal {
  driver = "postgres"
  dsn    = "host=localhost dbname=dirsync"
}
`

func writeConfig(t *testing.T, name, content string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	return fs
}

func TestLoadFile(t *testing.T) {
	fs := writeConfig(t, "dirsync.hcl", testConfig)

	cfg, err := Load(fs, "dirsync.hcl", env(nil))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://qmplus.app/api", cfg.BaseURL)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, "10s", cfg.Timeout)
	assert.Equal(t, 0, *cfg.MaxRetries)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, "1s", cfg.RetryDelay)
	assert.Equal(t, hclog.Debug, cfg.HCLogLevel())

	jc, ok := cfg.JournalConfig()
	require.True(t, ok)
	assert.Equal(t, "postgres", jc.Driver)
	assert.Equal(t, "host=localhost dbname=dirsync", jc.DSN)

	cc, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cc.Timeout)
	assert.Equal(t, 0, cc.MaxRetries)
	assert.Equal(t, 2*time.Second, cc.PollInterval)
	assert.True(t, *cc.TLSVerify)
}

func TestLoadEnvOverrides(t *testing.T) {
	fs := writeConfig(t, "dirsync.hcl", testConfig)

	cfg, err := Load(fs, "dirsync.hcl", env(map[string]string{
		"QMPLUS_API_TOKEN":   "env-token",
		"API_TIMEOUT":        "45000",
		"API_RETRY_ATTEMPTS": "5",
		"API_BATCH_SIZE":     "20",
		"LOG_LEVEL":          "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.APIToken)
	assert.Equal(t, "45s", cfg.Timeout)
	assert.Equal(t, 5, *cfg.MaxRetries)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, hclog.Warn, cfg.HCLogLevel())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "", env(map[string]string{
		"QMPLUS_BASE_URL": "http://localhost:8080/api",
		"QM_TENANT_ID":    "acme",
		"QM_API_TOKEN":    "qm-token",
	}))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, "qm-token", cfg.APIToken)
	assert.Equal(t, "30s", cfg.Timeout)
	assert.Equal(t, 3, *cfg.MaxRetries)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "info", cfg.LogLevel)

	jc, ok := cfg.JournalConfig()
	require.True(t, ok)
	assert.Equal(t, "sqlite", jc.Driver)
	assert.Equal(t, DefaultJournalPath, jc.Path)
}

func TestLoadPrefersQMPlusVariables(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "", env(map[string]string{
		"QMPLUS_TENANT_ID": "primary",
		"QM_TENANT_ID":     "fallback",
	}))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.TenantID)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(afero.NewMemMapFs(), "nope.hcl", env(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration file not found")
	})

	t.Run("bad hcl", func(t *testing.T) {
		fs := writeConfig(t, "bad.hcl", `base_url = `)
		_, err := Load(fs, "bad.hcl", env(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error decoding config file")
	})

	t.Run("bad timeout", func(t *testing.T) {
		_, err := Load(afero.NewMemMapFs(), "", env(map[string]string{"API_TIMEOUT": "soon"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API_TIMEOUT")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(afero.NewMemMapFs(), "", env(map[string]string{
			"QMPLUS_BASE_URL":  "https://qmplus.app/api",
			"QMPLUS_TENANT_ID": "acme",
			"QMPLUS_API_TOKEN": "token",
		}))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing base url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: "baseUrl"},
		{name: "ftp base url", mutate: func(c *Config) { c.BaseURL = "ftp://qmplus.app" }, wantErr: "baseUrl"},
		{name: "missing token", mutate: func(c *Config) { c.APIToken = "" }, wantErr: "apiToken"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = "0s" }, wantErr: "Timeout"},
		{name: "negative retries", mutate: func(c *Config) { n := -1; c.MaxRetries = &n }, wantErr: "MaxRetries"},
		{name: "batch too large", mutate: func(c *Config) { c.BatchSize = 1001 }, wantErr: "BatchSize"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "LogLevel"},
		{name: "unknown driver", mutate: func(c *Config) { c.Journal.Driver = "mysql" }, wantErr: "Driver"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Journal.Driver = "postgres" }, wantErr: "DSN"},
		{name: "disabled postgres without dsn", mutate: func(c *Config) {
			c.Journal.Driver = "postgres"
			c.Journal.Disabled = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJournalDisabled(t *testing.T) {
	fs := writeConfig(t, "dirsync.hcl", "journal {\n  disabled = true\n}\n")
	cfg, err := Load(fs, "dirsync.hcl", env(nil))
	require.NoError(t, err)

	_, ok := cfg.JournalConfig()
	assert.False(t, ok)
}
