package base

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/hashicorp-forge/dirsync/pkg/directory"
)

// NewTable returns a table writer in the CLI's style. Render the table and
// pass the result to UI.Output.
func NewTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

// Progress reports progress of a long-running operation. On a terminal it
// drives a spinner; otherwise updates are printed as lines.
type Progress struct {
	c *Command
	s *spinner.Spinner
}

// StartProgress begins reporting progress with an initial message.
func (c *Command) StartProgress(msg string) *Progress {
	p := &Progress{c: c}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		p.s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		p.s.Suffix = " " + msg
		p.s.Start()
		return p
	}
	c.UI.Info(msg)
	return p
}

// Update replaces the progress message.
func (p *Progress) Update(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if p.s != nil {
		p.s.Lock()
		p.s.Suffix = " " + msg
		p.s.Unlock()
		return
	}
	p.c.UI.Info(msg)
}

// Stop ends progress reporting.
func (p *Progress) Stop() {
	if p.s != nil {
		p.s.Stop()
	}
}

// WaitForTransaction polls a transaction until it finishes, showing progress.
func (c *Command) WaitForTransaction(
	ctx context.Context,
	client *directory.Client,
	txID string,
	interval time.Duration,
) (*directory.TransactionStatus, error) {
	p := c.StartProgress(fmt.Sprintf("Waiting for transaction %s...", txID))
	defer p.Stop()

	return client.MonitorTransaction(ctx, txID, func(s *directory.TransactionStatus) {
		p.Update("%s: %d/%d operations completed, %d failed",
			s.TransactionStatus, s.CompletedOperations, s.TotalOperations, s.FailedOperations)
	}, interval)
}
