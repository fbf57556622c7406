package base

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/hashicorp-forge/dirsync/internal/config"
	"github.com/hashicorp-forge/dirsync/internal/logging"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/journal"
)

// ConfigFlags are the flags shared by commands that load configuration.
type ConfigFlags struct {
	Path      string
	NoJournal bool
}

// Register adds the flags to f.
func (cf *ConfigFlags) Register(f *FlagSet) {
	f.StringVar(
		&cf.Path, "config", "",
		"Path to an HCL config file. Settings can also come from QMPLUS_* environment variables.",
	)
	f.BoolVar(
		&cf.NoJournal, "no-journal", false,
		"Do not record this run in the local journal.",
	)
}

// Env holds what a command needs to talk to the Directory API.
type Env struct {
	Config  *config.Config
	Log     hclog.Logger
	Client  *directory.Client
	Journal *journal.Journal

	logger *logging.Logger
}

// Close releases the journal database and log files.
func (e *Env) Close() error {
	var result *multierror.Error
	if err := e.Journal.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if e.logger != nil {
		if err := e.logger.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// LoadConfig loads and validates the settings that do not involve the API.
func (c *Command) LoadConfig(cf ConfigFlags) (*config.Config, error) {
	cfg, err := config.Load(c.fs(), cf.Path, c.getenv())
	if err != nil {
		return nil, err
	}
	if cf.NoJournal {
		cfg.Journal.Disabled = true
	}
	if err := cfg.ValidateLocal(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Setup loads configuration and builds the logger, API client and journal.
// The caller must Close the returned Env.
func (c *Command) Setup(cf ConfigFlags) (*Env, error) {
	cfg, err := c.LoadConfig(cf)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	env := &Env{Config: cfg, Log: c.Log}

	logger, err := logging.New(logging.Options{
		Name:  c.Log.Name(),
		Level: cfg.HCLogLevel(),
		Dir:   cfg.LogDir,
		Fs:    c.fs(),
	})
	if err != nil {
		return nil, err
	}
	env.logger = logger
	env.Log = logger

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	env.Client, err = directory.NewClient(clientCfg,
		directory.WithLogger(env.Log.Named("directory")))
	if err != nil {
		_ = env.Close()
		return nil, err
	}

	if jc, ok := cfg.JournalConfig(); ok {
		env.Journal, err = journal.Open(jc, env.Log.Named("journal"))
		if err != nil {
			_ = env.Close()
			return nil, fmt.Errorf("error opening journal: %w", err)
		}
	}

	return env, nil
}

// OpenJournal opens only the journal, for commands that do not call the API.
func (c *Command) OpenJournal(cf ConfigFlags) (*journal.Journal, error) {
	cfg, err := c.LoadConfig(cf)
	if err != nil {
		return nil, err
	}
	jc, ok := cfg.JournalConfig()
	if !ok {
		return nil, fmt.Errorf("journal is disabled")
	}
	return journal.Open(jc, c.Log.Named("journal"))
}
