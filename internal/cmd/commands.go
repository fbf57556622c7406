package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/failurereport"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/formreport"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/fullsync"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/history"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/importusers"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/orgsetup"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/status"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/transactions"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/validateauth"
	"github.com/hashicorp-forge/dirsync/internal/cmd/commands/version"
)

// Commands is the mapping of all available dirsync commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := base.NewCommand(log, ui)

	Commands = map[string]cli.CommandFactory{
		"failures": func() (cli.Command, error) {
			return &failurereport.Command{Command: b}, nil
		},
		"form-entries": func() (cli.Command, error) {
			return &formreport.Command{Command: b}, nil
		},
		"history": func() (cli.Command, error) {
			return &history.Command{Command: b}, nil
		},
		"import-users": func() (cli.Command, error) {
			return &importusers.Command{Command: b}, nil
		},
		"org-setup": func() (cli.Command, error) {
			return &orgsetup.Command{Command: b}, nil
		},
		"status": func() (cli.Command, error) {
			return &status.Command{Command: b}, nil
		},
		"sync": func() (cli.Command, error) {
			return &fullsync.Command{Command: b}, nil
		},
		"transactions": func() (cli.Command, error) {
			return &transactions.Command{Command: b}, nil
		},
		"validate-auth": func() (cli.Command, error) {
			return &validateauth.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
