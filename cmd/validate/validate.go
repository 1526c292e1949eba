// Package validate handles the statement format check command.
package validate

import (
	"fmt"
	"os"

	"swisscluster/camt-import/cmd/root"
	"swisscluster/camt-import/internal/camt"

	"github.com/spf13/cobra"
)

// Cmd represents the validate command.
var Cmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check whether a file is a CAMT.053 statement",
	Long: `Check whether the given XML file looks like a CAMT.053 bank-to-customer
statement, without parsing it fully.`,
	Args: cobra.ExactArgs(1),
	Run:  validateFunc,
}

func validateFunc(cmd *cobra.Command, args []string) {
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		root.Log.WithError(err).Fatal("Failed to read file")
	}

	if camt.ValidateBytes(data) {
		fmt.Printf("%s: valid CAMT.053 statement\n", path)
		return
	}
	fmt.Printf("%s: not a CAMT.053 statement\n", path)
	os.Exit(1)
}
