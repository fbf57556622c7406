package failurereport

import (
	"flag"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/failures"
)

type Command struct {
	*base.Command

	flagConfig     base.ConfigFlags
	flagJob        string
	flagStrategies bool
}

func (c *Command) Synopsis() string {
	return "Analyze failed operations of a transaction"
}

func (c *Command) Help() string {
	return `Usage: dirsync failures [options] [TRANSACTION_ID]

  List the failed operations of a transaction, grouped by error type, with
  recommendations for fixing them.

  Examples:
    dirsync failures 7f3c9a20
    dirsync failures -job 1234 7f3c9a20
    dirsync failures -strategies
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("failures", flag.ContinueOnError))
	c.flagConfig.Register(f)
	f.StringVar(&c.flagJob, "job", "", "Also show the background job with this ID.")
	f.BoolVar(
		&c.flagStrategies, "strategies", false,
		"Print the recovery strategy for each error type and exit.",
	)
	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	if c.flagStrategies {
		c.printStrategies()
		return 0
	}
	if f.NArg() != 1 && c.flagJob == "" {
		ui.Error("expected a transaction ID or -job")
		return 1
	}

	c.flagConfig.NoJournal = true
	env, err := c.Setup(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer env.Close()

	ctx, cancel := c.Context()
	defer cancel()

	if f.NArg() == 1 {
		status, err := env.Client.GetTransactionStatus(ctx, f.Arg(0))
		if err != nil {
			c.PrintAPIError("Error getting transaction status", err)
			return 1
		}
		c.printFailures(failures.Summarize(status))
	}

	if c.flagJob != "" {
		job, err := env.Client.GetJob(ctx, c.flagJob)
		if err != nil {
			c.PrintAPIError("Error getting job", err)
			return 1
		}
		c.printJob(job)
	}

	return 0
}

func (c *Command) printFailures(s failures.Summary) {
	ui := c.UI
	ui.Output(fmt.Sprintf("Transaction %s: %s", s.TransactionID, s.Status))
	ui.Output(fmt.Sprintf("  Total: %d  Successful: %d  Failed: %d  Success rate: %d%%",
		s.Total, s.Completed, s.Failed, s.SuccessRate))

	if len(s.Groups) == 0 {
		ui.Info("No failed operations")
		return
	}

	t := base.NewTable("Operation", "Type", "Action", "Entity", "External ID", "Error", "Message")
	var all []directory.Failure
	for _, g := range s.Groups {
		for _, fl := range g.Failures {
			t.AppendRow([]any{
				fl.OperationID,
				fl.OperationType,
				fl.OperationAction,
				orDefault(fl.EntityName, "Unknown"),
				orDefault(fl.ExternalID, "N/A"),
				g.Type,
				fl.ErrorMessage,
			})
			all = append(all, fl)
		}
	}
	ui.Output(t.Render())

	for _, fl := range all {
		if len(fl.Details) == 0 {
			continue
		}
		ui.Output(fmt.Sprintf("Details for operation %s:", fl.OperationID))
		for _, k := range slices.Sorted(maps.Keys(fl.Details)) {
			ui.Output(fmt.Sprintf("  %s: %v", k, fl.Details[k]))
		}
	}

	ui.Output("Error analysis and recommendations:")
	for _, g := range s.Groups {
		ui.Output(fmt.Sprintf("  %s errors (%d):", g.Type, len(g.Failures)))
		for _, rec := range failures.Recommendations(g.Type) {
			ui.Output("    - " + rec)
		}
	}

	if n := len(failures.RetryCandidates(all)); n > 0 {
		ui.Info(fmt.Sprintf("%d of %d failed operations may succeed if resubmitted", n, len(all)))
	}
}

func (c *Command) printJob(job *directory.Job) {
	ui := c.UI
	ui.Output(fmt.Sprintf("Job %s", job.ID))
	ui.Output(fmt.Sprintf("  Status:   %s", job.Status))
	ui.Output(fmt.Sprintf("  Progress: %.0f%%", job.DonePercentage))
	ui.Output(fmt.Sprintf("  Started:  %s", job.StartedOn))
	ui.Output(fmt.Sprintf("  Finished: %s", orDefault(job.FinishedOn, "In progress")))

	if len(job.Updates) > 0 {
		ui.Output("  Progress updates:")
		for i, u := range job.Updates {
			ui.Output(fmt.Sprintf("    %d. %s: %s", i+1, u.Timestamp, u.Message))
		}
	}
	if len(job.Results) > 0 {
		ui.Output("  Final results:")
		for _, k := range slices.Sorted(maps.Keys(job.Results)) {
			ui.Output(fmt.Sprintf("    %s: %v", k, job.Results[k]))
		}
	}
	if job.ErrorMessage != "" {
		ui.Error(fmt.Sprintf("  Job error: %s", job.ErrorMessage))
	}
}

func (c *Command) printStrategies() {
	t := base.NewTable("Error Type", "Retry", "Action", "Examples")
	for _, typ := range failures.Known {
		s := failures.StrategyFor(typ)
		retry := "no"
		switch {
		case s.Retry && s.Backoff:
			retry = "yes, with backoff"
		case s.Retry:
			retry = "yes"
		}
		t.AppendRow([]any{typ, retry, s.Action, strings.Join(s.Examples, ", ")})
	}
	c.UI.Output(t.Render())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
