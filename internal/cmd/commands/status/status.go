package status

import (
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/failures"
)

type Command struct {
	*base.Command

	flagConfig   base.ConfigFlags
	flagWait     bool
	flagInterval time.Duration
}

func (c *Command) Synopsis() string {
	return "Show the status of a transaction"
}

func (c *Command) Help() string {
	return `Usage: dirsync status [options] TRANSACTION_ID

  Show the progress of a provisioning transaction. With -wait, poll until
  the transaction is COMPLETED or FAILED.
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("status", flag.ContinueOnError))
	c.flagConfig.Register(f)
	f.BoolVar(&c.flagWait, "wait", false, "Poll until the transaction finishes.")
	f.DurationVar(
		&c.flagInterval, "interval", 0,
		"Delay between polls with -wait. Defaults to the configured poll_interval.",
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
	if f.NArg() != 1 {
		ui.Error("expected exactly one transaction ID")
		return 1
	}
	txID := f.Arg(0)

	env, err := c.Setup(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer env.Close()

	ctx, cancel := c.Context()
	defer cancel()

	var status *directory.TransactionStatus
	if c.flagWait {
		status, err = c.WaitForTransaction(ctx, env.Client, txID, c.flagInterval)
	} else {
		status, err = env.Client.GetTransactionStatus(ctx, txID)
	}
	if err != nil {
		c.PrintAPIError("Error getting transaction status", err)
		return 1
	}

	summary := failures.Summarize(status)
	ui.Output(fmt.Sprintf("Transaction %s", summary.TransactionID))
	ui.Output(fmt.Sprintf("  Status:       %s", summary.Status))
	ui.Output(fmt.Sprintf("  Operations:   %d/%d completed", summary.Completed, summary.Total))
	ui.Output(fmt.Sprintf("  Failed:       %d", summary.Failed))
	ui.Output(fmt.Sprintf("  Success rate: %d%%", summary.SuccessRate))
	if status.CompletedOn != "" {
		ui.Output(fmt.Sprintf("  Completed on: %s", status.CompletedOn))
	}

	runs, err := env.Journal.ForTransaction(ctx, txID)
	if err != nil {
		env.Log.Warn("failed to read journal", "error", err)
	}
	for _, r := range runs {
		ui.Output(fmt.Sprintf("  Local run:    %s %s from %q at %s",
			r.Kind, r.Status, r.Source, r.StartedAt.Local().Format(time.DateTime)))
	}

	if summary.Failed > 0 {
		ui.Warn(fmt.Sprintf("%d operations failed; run `dirsync failures %s` for details",
			summary.Failed, txID))
	}
	if status.TransactionStatus == directory.StatusFailed {
		return 2
	}
	return 0
}
