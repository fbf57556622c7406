package transactions

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/validate"
)

type Command struct {
	*base.Command

	flagConfig    base.ConfigFlags
	flagStatus    string
	flagCreatedBy string
	flagAfter     string
	flagBefore    string
	flagPage      int
	flagPageSize  int
}

func (c *Command) Synopsis() string {
	return "List provisioning transactions"
}

func (c *Command) Help() string {
	return `Usage: dirsync transactions [options]

  List provisioning transactions, newest first.

  Dates accept most common formats, for example "2024-05-01",
  "May 1, 2024" or "2024-05-01T10:00:00Z".
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("transactions", flag.ContinueOnError))
	c.flagConfig.Register(f)
	f.StringVar(
		&c.flagStatus, "status", "",
		"Only list transactions in this status (OPEN, PROCESSING, COMPLETED, FAILED).",
	)
	f.StringVar(&c.flagCreatedBy, "created-by", "", "Only list transactions created by this user.")
	f.StringVar(&c.flagAfter, "after", "", "Only list transactions created after this date.")
	f.StringVar(&c.flagBefore, "before", "", "Only list transactions created before this date.")
	f.IntVar(&c.flagPage, "page", 0, "Page number, starting at 0.")
	f.IntVar(&c.flagPageSize, "page-size", 20, "Transactions per page (1-1000).")
	return f
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	f := c.Flags()
	if err := f.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	filter, err := c.filter()
	if err != nil {
		ui.Error(err.Error())
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

	list, err := env.Client.ListTransactions(ctx, filter)
	if err != nil {
		c.PrintAPIError("Error listing transactions", err)
		return 1
	}

	if len(list.Transactions) == 0 {
		ui.Output("No transactions found.")
		return 0
	}

	t := base.NewTable("Transaction ID", "Status", "Operations", "Failed", "Created", "Completed")
	for _, tx := range list.Transactions {
		t.AppendRow([]any{
			tx.TransactionID,
			tx.Status,
			fmt.Sprintf("%d/%d", tx.CompletedCount, tx.OperationCount),
			tx.FailedCount,
			tx.CreatedOn,
			tx.CompletedOn,
		})
	}
	ui.Output(t.Render())
	ui.Output(fmt.Sprintf("Showing %d of %d transactions (page %d)",
		len(list.Transactions), list.TotalCount, filter.Page))
	return 0
}

func (c *Command) filter() (directory.ListFilter, error) {
	if err := validate.Pagination(c.flagPage, c.flagPageSize); err != nil {
		return directory.ListFilter{}, fmt.Errorf("invalid pagination: %w", err)
	}

	filter := directory.ListFilter{
		CreatedBy: c.flagCreatedBy,
		Page:      c.flagPage,
		PageSize:  c.flagPageSize,
	}

	if c.flagStatus != "" {
		s := directory.Status(strings.ToUpper(c.flagStatus))
		switch s {
		case directory.StatusOpen, directory.StatusProcessing, directory.StatusCompleted, directory.StatusFailed:
			filter.Status = s
		default:
			return filter, fmt.Errorf("unknown status %q", c.flagStatus)
		}
	}

	var err error
	if filter.CreatedAfter, err = parseDate("after", c.flagAfter); err != nil {
		return filter, err
	}
	if filter.CreatedBefore, err = parseDate("before", c.flagBefore); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseDate(name, value string) (string, error) {
	if value == "" {
		return "", nil
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return "", fmt.Errorf("invalid -%s date %q: %w", name, value, err)
	}
	return t.UTC().Format(time.RFC3339), nil
}
