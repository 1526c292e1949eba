package main

import (
	"fmt"
	"os"

	"swisscluster/camt-import/cmd/commit"
	"swisscluster/camt-import/cmd/preview"
	"swisscluster/camt-import/cmd/root"
	"swisscluster/camt-import/cmd/validate"

	"swisscluster/camt-import/internal/config"
)

func init() {
	// Load .env silently before anything logs; PersistentPreRun applies the
	// full configuration later.
	config.LoadEnv()

	root.Init()
	root.Cmd.AddCommand(preview.Cmd)
	root.Cmd.AddCommand(commit.Cmd)
	root.Cmd.AddCommand(validate.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
