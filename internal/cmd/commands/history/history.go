package history

import (
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/journal"
)

type Command struct {
	*base.Command

	flagConfig base.ConfigFlags
	flagLimit  int
}

func (c *Command) Synopsis() string {
	return "Show recent sync runs from the local journal"
}

func (c *Command) Help() string {
	return `Usage: dirsync history [options]

  List the most recent sync runs recorded in the local journal.
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("history", flag.ContinueOnError))
	c.flagConfig.Register(f)
	f.IntVar(&c.flagLimit, "limit", 20, "Number of runs to show.")
	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	if c.flagLimit < 1 {
		ui.Error("limit must be at least 1")
		return 1
	}

	j, err := c.OpenJournal(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error opening journal: %v", err))
		return 1
	}
	defer j.Close()

	ctx, cancel := c.Context()
	defer cancel()

	runs, err := j.Recent(ctx, c.flagLimit)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	if len(runs) == 0 {
		ui.Output("No runs recorded.")
		return 0
	}

	t := base.NewTable("Started", "Kind", "Status", "Source", "Transaction", "Total", "Failed", "Unresolved", "Duration")
	for _, r := range runs {
		t.AppendRow([]any{
			r.StartedAt.Local().Format(time.DateTime),
			r.Kind,
			r.Status,
			r.Source,
			r.TransactionID,
			r.Total,
			r.Failed,
			r.UnresolvedDepartments,
			duration(r),
		})
	}
	ui.Output(t.Render())

	for _, r := range runs {
		if r.Status == journal.RunFailed && r.Error != "" {
			ui.Warn(fmt.Sprintf("%s %s: %s", r.StartedAt.Local().Format(time.DateTime), r.Kind, r.Error))
		}
	}
	return 0
}

func duration(r journal.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}
