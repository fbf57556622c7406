package base

import (
	"bytes"
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
)

// Command is embedded by every dirsync command.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui

	// Fs and Getenv default to the OS and are replaced in tests.
	Fs     afero.Fs
	Getenv func(string) string
}

// NewCommand returns a Command backed by the OS filesystem and environment.
func NewCommand(log hclog.Logger, ui cli.Ui) *Command {
	return &Command{
		Log:    log,
		UI:     ui,
		Fs:     afero.NewOsFs(),
		Getenv: os.Getenv,
	}
}

func (c *Command) fs() afero.Fs {
	if c.Fs == nil {
		return afero.NewOsFs()
	}
	return c.Fs
}

func (c *Command) getenv() func(string) string {
	if c.Getenv == nil {
		return os.Getenv
	}
	return c.Getenv
}

// Context returns a context that is cancelled on SIGINT or SIGTERM.
func (c *Command) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// FlagSet wraps a flag.FlagSet with help output for the cli package.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet creates a FlagSet. Parse errors are returned rather than
// printed so commands report them through their UI.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.Usage = func() {}
	f.SetOutput(new(bytes.Buffer))
	return &FlagSet{FlagSet: f}
}

// Help returns the formatted flag defaults.
func (f *FlagSet) Help() string {
	var buf bytes.Buffer
	out := f.FlagSet.Output()
	f.FlagSet.SetOutput(&buf)
	f.FlagSet.PrintDefaults()
	f.FlagSet.SetOutput(out)

	if buf.Len() == 0 {
		return ""
	}
	return "\nOptions:\n\n" + strings.TrimRight(buf.String(), "\n")
}
