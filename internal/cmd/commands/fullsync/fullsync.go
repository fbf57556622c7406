package fullsync

import (
	"flag"
	"fmt"
	"time"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/journal"
)

type Command struct {
	*base.Command

	flagConfig base.ConfigFlags
	flagData   base.DataFlags
	flagWait   bool
}

func (c *Command) Synopsis() string {
	return "Synchronize departments and users in one transaction"
}

func (c *Command) Help() string {
	return `Usage: dirsync sync [options]

  Run a full directory synchronization: open a checkpoint, queue the
  departments (parents before children) and users, and commit.

  Examples:
    dirsync sync -data=directory.yaml
    dirsync sync -sample -wait
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("sync", flag.ContinueOnError))
	c.flagConfig.Register(f)
	c.flagData.Register(f)
	f.BoolVar(
		&c.flagWait, "wait", false,
		"Wait for the committed transaction to finish processing.",
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

	data, source, err := c.LoadData(c.flagData)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}

	env, err := c.Setup(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer env.Close()

	ctx, cancel := c.Context()
	defer cancel()

	ui.Info("Validating authentication...")
	if err := env.Client.AuthError(ctx); err != nil {
		c.PrintAPIError("Authentication validation failed", err)
		return 1
	}

	run, err := env.Journal.Start(ctx, journal.KindFullSync, source, data)
	if err != nil {
		env.Log.Warn("journal unavailable", "error", err)
	}

	ui.Info("Starting synchronization...")
	start := time.Now()
	result, syncErr := env.Client.FullSync(ctx, data)

	out := journal.FromCommit(result)
	if syncErr == nil {
		_, unresolved := directory.OrderDepartments(data.Departments)
		out.Unresolved = len(unresolved)
	}
	if err := env.Journal.Finish(ctx, run, out, syncErr); err != nil {
		env.Log.Warn("failed to record run", "error", err)
	}

	if syncErr != nil {
		c.PrintAPIError("Synchronization failed", syncErr)
		return 1
	}

	c.PrintCommit(result)
	ui.Output(fmt.Sprintf("  Duration:         %s", time.Since(start).Round(time.Millisecond)))

	if c.flagWait {
		status, err := c.WaitForTransaction(ctx, env.Client, result.TransactionID, 0)
		if err != nil {
			c.PrintAPIError("Monitoring failed", err)
			return 1
		}
		ui.Info(fmt.Sprintf("Transaction %s finished: %s", status.TransactionID, status.TransactionStatus))
		if status.TransactionStatus == directory.StatusFailed {
			return 2
		}
	}

	if result.FailedOperations > 0 {
		return 2
	}
	return 0
}
