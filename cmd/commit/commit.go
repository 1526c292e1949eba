// Package commit handles the ledger commit command.
package commit

import (
	"context"
	"fmt"

	"swisscluster/camt-import/cmd/root"
	"swisscluster/camt-import/internal/reviewsheet"

	"github.com/spf13/cobra"
)

var sheetFlag string

// Cmd represents the commit command.
var Cmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the selected rows of a review sheet to the ledger",
	Long: `Read an edited review sheet and create a ledger transaction for every
selected row. Rows that already exist in the ledger are skipped, so
committing the same sheet twice is safe.`,
	Run: commitFunc,
}

func init() {
	Cmd.Flags().StringVarP(&sheetFlag, "sheet", "s", "review.csv", "Edited review sheet to commit")
}

func commitFunc(cmd *cobra.Command, args []string) {
	account := root.AccountFlag(cmd)
	if account == "" {
		root.Log.Fatal("--account is required for commit")
	}

	rows, err := reviewsheet.Read(sheetFlag, root.Log)
	if err != nil {
		root.Log.WithError(err).Fatal("Failed to read review sheet")
	}
	if len(rows) == 0 {
		root.Log.Warn("No rows selected in the review sheet; nothing to do")
		return
	}

	svc, cleanup, err := root.BuildService()
	if err != nil {
		root.Log.WithError(err).Fatal("Failed to initialize import pipeline")
	}
	defer cleanup()

	report, err := svc.Commit(context.Background(), rows, account)
	if err != nil {
		root.Log.WithError(err).Fatal("Commit failed")
	}

	fmt.Println(report.Message)
	for _, doc := range report.CreatedDocs {
		fmt.Printf("  created %s (%s)\n", doc.DocName, doc.ReferenceNumber)
	}
	for _, ref := range report.SkippedDocs {
		fmt.Printf("  skipped %s (already imported)\n", ref)
	}
	for _, failed := range report.FailedRows {
		fmt.Printf("  failed %s: %s\n", failed.ReferenceNumber, failed.Error)
	}
}
