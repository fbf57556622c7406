package importusers

import (
	"flag"
	"fmt"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/journal"
)

type Command struct {
	*base.Command

	flagConfig    base.ConfigFlags
	flagData      base.DataFlags
	flagBatchSize int
}

func (c *Command) Synopsis() string {
	return "Import users in batches within one transaction"
}

func (c *Command) Help() string {
	return `Usage: dirsync import-users [options]

  Import the users of a data file. Users are queued in batches inside a
  single transaction which is committed once every batch is accepted.
  Departments in the file are ignored; create them with org-setup or sync.
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("import-users", flag.ContinueOnError))
	c.flagConfig.Register(f)
	c.flagData.Register(f)
	f.IntVar(
		&c.flagBatchSize, "batch-size", 0,
		"Users per request. Defaults to the configured batch_size.",
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
	if c.flagBatchSize < 0 || c.flagBatchSize > 1000 {
		ui.Error("batch-size must be between 1 and 1000")
		return 1
	}

	data, source, err := c.LoadData(c.flagData)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	if len(data.Users) == 0 {
		ui.Error("no users to import")
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

	users := directory.SyncData{Users: data.Users}
	run, err := env.Journal.Start(ctx, journal.KindBulkImport, source, users)
	if err != nil {
		env.Log.Warn("journal unavailable", "error", err)
	}

	batch := c.flagBatchSize
	if batch == 0 {
		batch = env.Config.BatchSize
	}
	ui.Info(fmt.Sprintf("Importing %d users in batches of %d...", len(data.Users), batch))

	result, importErr := env.Client.BulkUserImport(ctx, data.Users, batch)
	if err := env.Journal.Finish(ctx, run, journal.FromCommit(result), importErr); err != nil {
		env.Log.Warn("failed to record run", "error", err)
	}

	if importErr != nil {
		c.PrintAPIError("User import failed", importErr)
		return 1
	}

	c.PrintCommit(result)
	if result.FailedOperations > 0 {
		return 2
	}
	return 0
}
