// Package logging builds the dirsync root logger. Output goes to the terminal
// and, when a log directory is configured, to JSON log files.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

const (
	IntegrationLog = "integration.log"
	ErrorLog       = "error.log"
)

// Options configures New.
type Options struct {
	Name  string
	Level hclog.Level

	// Output defaults to os.Stderr.
	Output io.Writer

	// Dir enables the file sinks when set.
	Dir string

	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

// Logger is an hclog.Logger that also owns its log files.
type Logger struct {
	hclog.InterceptLogger

	files []afero.File
}

// New creates a logger. When opts.Dir is set, every entry at opts.Level or
// above is written to integration.log, and errors are also written to
// error.log.
func New(opts Options) (*Logger, error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Level == hclog.NoLevel {
		opts.Level = hclog.Info
	}

	l := &Logger{
		InterceptLogger: hclog.NewInterceptLogger(&hclog.LoggerOptions{
			Name:   opts.Name,
			Level:  opts.Level,
			Output: opts.Output,
		}),
	}

	if opts.Dir == "" {
		return l, nil
	}

	if err := opts.Fs.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	sinks := []struct {
		file  string
		level hclog.Level
	}{
		{IntegrationLog, opts.Level},
		{ErrorLog, hclog.Error},
	}
	for _, s := range sinks {
		f, err := opts.Fs.OpenFile(
			filepath.Join(opts.Dir, s.file),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0o644,
		)
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.files = append(l.files, f)
		l.RegisterSink(hclog.NewSinkAdapter(&hclog.LoggerOptions{
			Name:       opts.Name,
			Level:      s.level,
			Output:     f,
			JSONFormat: true,
		}))
	}

	return l, nil
}

// Close closes the log files.
func (l *Logger) Close() error {
	var result *multierror.Error
	for _, f := range l.files {
		if err := f.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	l.files = nil
	return result.ErrorOrNil()
}
