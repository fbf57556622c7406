package version

import (
	"github.com/hashicorp-forge/dirsync/internal/cmd/base"
	"github.com/hashicorp-forge/dirsync/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the dirsync version"
}

func (c *Command) Help() string {
	return `Usage: dirsync version

  Print the dirsync version.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("dirsync " + version.Version)
	return 0
}
