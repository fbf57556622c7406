package main

import (
	"os"

	"github.com/hashicorp-forge/dirsync/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
