package validateauth

import (
	"flag"
	"fmt"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/pkg/directory"
	"github.com/hashicorp-forge/dirsync/pkg/validate"
)

type Command struct {
	*base.Command

	flagConfig   base.ConfigFlags
	flagNoUpdate bool
}

func (c *Command) Synopsis() string {
	return "Check API credentials and provisioning permissions"
}

func (c *Command) Help() string {
	return `Usage: dirsync validate-auth [options]

  Check that the configured credentials can reach the Directory API and
  hold the PROVISIONING_SEARCH and PROVISIONING_UPDATE permissions.

  The update check opens a checkpoint that is never committed; the server
  expires it automatically. Use -no-update to skip it.
` + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("validate-auth", flag.ContinueOnError))
	c.flagConfig.Register(f)
	f.BoolVar(
		&c.flagNoUpdate, "no-update", false,
		"Skip the PROVISIONING_UPDATE check.",
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

	ui.Info("Checking configuration...")
	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	if err := validate.AuthConfig(cfg.BaseURL, cfg.TenantID, cfg.APIToken); err != nil {
		ui.Error("Configuration errors:")
		for _, msg := range validate.Messages(err) {
			ui.Error("  - " + msg)
		}
		ui.Error("Set base_url, tenant_id and api_token in the config file or " +
			"QMPLUS_BASE_URL, QMPLUS_TENANT_ID and QMPLUS_API_TOKEN.")
		return 1
	}
	ui.Output(fmt.Sprintf("  Base URL:  %s", cfg.BaseURL))
	ui.Output(fmt.Sprintf("  Tenant ID: %s", cfg.TenantID))
	ui.Output(fmt.Sprintf("  API Token: %s", maskToken(cfg.APIToken)))

	c.flagConfig.NoJournal = true
	env, err := c.Setup(c.flagConfig)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	defer env.Close()

	ctx, cancel := c.Context()
	defer cancel()
	client := env.Client

	ui.Info("Testing API connection...")
	if err := client.AuthError(ctx); err != nil {
		ui.Error(fmt.Sprintf("Authentication failed: %v", err))
		c.troubleshoot(err)
		return 1
	}
	ui.Info("Authentication successful")

	ui.Info("Testing permissions...")
	list, err := client.ListTransactions(ctx, directory.ListFilter{PageSize: 1})
	switch {
	case err == nil:
		ui.Info("PROVISIONING_SEARCH permission confirmed")
		ui.Output(fmt.Sprintf("  Found %d total transactions", list.TotalCount))
	case directory.IsPermissionError(err):
		ui.Error("Missing PROVISIONING_SEARCH permission; ask an administrator to assign this role")
	default:
		ui.Error(fmt.Sprintf("Validation failed: %v", err))
		c.troubleshoot(err)
		return 1
	}

	if !c.flagNoUpdate {
		cp, err := client.CreateCheckpoint(ctx)
		switch {
		case err == nil:
			ui.Info("PROVISIONING_UPDATE permission confirmed")
			ui.Output(fmt.Sprintf("  Created test checkpoint %s (it will expire automatically)", cp.TransactionID))
		case directory.IsPermissionError(err):
			ui.Error("Missing PROVISIONING_UPDATE permission; ask an administrator to assign this role")
		default:
			ui.Error(fmt.Sprintf("Validation failed: %v", err))
			c.troubleshoot(err)
			return 1
		}
	}

	ui.Info("Testing data access...")
	active := directory.ActiveFilter{Active: directory.Bool(true)}
	depts, err := client.GetDepartments(ctx, active)
	if err != nil {
		ui.Warn(fmt.Sprintf("Data access limited: %v", err))
	} else {
		ui.Output(fmt.Sprintf("  Can access departments (%d active)", len(depts.Entries)))
		users, err := client.GetUsers(ctx, active)
		if err != nil {
			ui.Warn(fmt.Sprintf("Data access limited: %v", err))
		} else {
			ui.Output(fmt.Sprintf("  Can access users (%d active)", len(users.Entries)))
		}
	}

	ui.Info("Validation completed successfully")
	return 0
}

func (c *Command) troubleshoot(err error) {
	var tips []string
	switch directory.KindOf(err) {
	case directory.KindAuth:
		tips = []string{
			"Verify your API token is correct and not expired",
			"Check that the tenant ID matches your organization",
			"Ensure the user account associated with the token is active",
		}
	case directory.KindNetwork:
		tips = []string{
			"Check your network connection",
			"Verify the base URL is correct",
			"Check for firewall restrictions",
		}
	default:
		tips = []string{
			"Check the logs for more detailed error information",
			"Contact your administrator for assistance",
		}
	}
	c.UI.Output("Troubleshooting:")
	for _, t := range tips {
		c.UI.Output("  - " + t)
	}
}

func maskToken(token string) string {
	if len(token) <= 10 {
		return "..."
	}
	return token[:10] + "..."
}
