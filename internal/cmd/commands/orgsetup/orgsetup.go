package orgsetup

import (
	"flag"
	"fmt"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/journal"
)

type Command struct {
	*base.Command

	flagConfig base.ConfigFlags
	flagData   base.DataFlags
	flagDryRun bool
}

func (c *Command) Synopsis() string {
	return "Create the department hierarchy, parents first"
}

func (c *Command) Help() string {
	return `Usage: dirsync org-setup [options]

  Send departments directly, outside a transaction, ordered so that every
  parent is created before its children. Departments in a parent cycle or
  with a missing parent are sent last.

  Use -dry-run to print the order without contacting the API. Cycles and
  missing parents are reported during validation.
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("org-setup", flag.ContinueOnError))
	c.flagConfig.Register(f)
	c.flagData.Register(f)
	f.BoolVar(
		&c.flagDryRun, "dry-run", false,
		"Only print the order in which departments would be sent.",
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
	if len(data.Departments) == 0 {
		ui.Error("no departments to set up")
		return 1
	}

	ordered, unresolved := directory.OrderDepartments(data.Departments)

	if c.flagDryRun {
		c.printOrder(ordered, unresolved)
		return 0
	}

	env, err := c.Setup(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer env.Close()

	ctx, cancel := c.Context()
	defer cancel()

	run, err := env.Journal.Start(ctx, journal.KindOrgSetup, source, directory.SyncData{Departments: data.Departments})
	if err != nil {
		env.Log.Warn("journal unavailable", "error", err)
	}

	result, setupErr := env.Client.OrganizationSetup(ctx, data.Departments)

	out := journal.FromDirect(result)
	out.Unresolved = len(unresolved)
	if err := env.Journal.Finish(ctx, run, out, setupErr); err != nil {
		env.Log.Warn("failed to record run", "error", err)
	}

	if setupErr != nil {
		c.PrintAPIError("Organization setup failed", setupErr)
		return 1
	}

	ui.Output("Organization setup results:")
	ui.Output(fmt.Sprintf("  Processed:  %d", result.Processed))
	ui.Output(fmt.Sprintf("  Successful: %d", out.Successful))
	ui.Output(fmt.Sprintf("  Failed:     %d", out.Failed))
	if len(unresolved) > 0 {
		ui.Warn(fmt.Sprintf("  %d departments were sent without a resolved parent", len(unresolved)))
	}
	c.PrintOperationErrors(result.Errors)

	if out.Failed > 0 {
		return 2
	}
	ui.Info("Organization setup completed successfully")
	return 0
}

func (c *Command) printOrder(ordered, unresolved []directory.Department) {
	pending := make(map[string]bool, len(unresolved))
	for _, d := range unresolved {
		pending[d.ExternalID] = true
	}

	t := base.NewTable("#", "External ID", "Name", "Parent", "")
	for i, d := range ordered {
		note := ""
		if pending[d.ExternalID] {
			note = "unresolved"
		}
		t.AppendRow([]any{i + 1, d.ExternalID, d.DepartmentName, d.ParentExternalID, note})
	}
	c.UI.Output(t.Render())

	if len(unresolved) == 0 {
		c.UI.Info(fmt.Sprintf("All %d departments ordered", len(ordered)))
	} else {
		c.UI.Warn(fmt.Sprintf("%d of %d departments could not be ordered and would be sent last",
			len(unresolved), len(ordered)))
	}
}
