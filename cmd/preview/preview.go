// Package preview handles the statement preview command.
package preview

import (
	"context"
	"fmt"
	"time"

	"swisscluster/camt-import/cmd/root"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"
	"swisscluster/camt-import/internal/reviewsheet"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var (
	fileFlag   string
	folderFlag string
	fromFlag   string
	toFlag     string
	outputFlag string
)

// Cmd represents the preview command.
var Cmd = &cobra.Command{
	Use:   "preview",
	Short: "Parse statements and write a review sheet, without touching the ledger",
	Long: `Parse a CAMT.053 file, ZIP archive or batch location, mark rows that
already exist in the ledger and write everything to a CSV review sheet.
Edit the sheet (tick or untick rows, fill in missing parties) and pass it
to 'commit'.`,
	Run: previewFunc,
}

func init() {
	Cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Single statement file (.xml or .zip)")
	Cmd.Flags().StringVarP(&folderFlag, "folder", "d", "", "Batch location (local directory, URL or gs:// bucket)")
	Cmd.Flags().StringVar(&fromFlag, "from", "", "Only include rows on or after this date (YYYY-MM-DD)")
	Cmd.Flags().StringVar(&toFlag, "to", "", "Only include rows on or before this date (YYYY-MM-DD)")
	Cmd.Flags().StringVarP(&outputFlag, "output", "o", "review.csv", "Review sheet output path")
	Cmd.MarkFlagsMutuallyExclusive("file", "folder")
	Cmd.MarkFlagsOneRequired("file", "folder")
}

func previewFunc(cmd *cobra.Command, args []string) {
	src := models.SingleFile(fileFlag)
	if folderFlag != "" {
		src = models.Batch(folderFlag)
	}

	window, err := parseWindow(fromFlag, toFlag)
	if err != nil {
		root.Log.WithError(err).Fatal("Invalid date window")
	}

	svc, cleanup, err := root.BuildService()
	if err != nil {
		root.Log.WithError(err).Fatal("Failed to initialize import pipeline")
	}
	defer cleanup()

	result, err := svc.PreviewSource(context.Background(), src, window, root.AccountFlag(cmd))
	if err != nil {
		root.Log.WithError(err).Fatal("Preview failed")
	}

	printSummary(result.Summary)

	rows := result.Rows()
	if len(rows) == 0 {
		root.Log.Warn("No transactions to review; sheet not written")
		return
	}

	if err := reviewsheet.Write(rows, outputFlag, root.Log); err != nil {
		root.Log.WithError(err).Fatal("Failed to write review sheet")
	}

	root.Log.Info("Preview completed",
		logging.Field{Key: logging.FieldFile, Value: outputFlag},
		logging.Field{Key: logging.FieldAccount, Value: result.BankAccountID},
		logging.Field{Key: logging.FieldCount, Value: len(rows)})
	fmt.Printf("Review sheet written to %s (%d rows, account %s)\n", outputFlag, len(rows), result.BankAccountID)
}

func printSummary(summary models.ProcessingSummary) {
	fmt.Println(summaryLine(summary))
	for name, reason := range summary.SkipReasons {
		fmt.Printf("  skipped %s: %s\n", name, reason)
	}
}

func summaryLine(summary models.ProcessingSummary) string {
	return fmt.Sprintf("Files: %d total, %d processed, %d skipped",
		summary.TotalFiles, summary.ProcessedFiles, len(summary.SkippedFiles))
}

func parseWindow(from, to string) (models.DateRange, error) {
	var window models.DateRange
	var err error
	if from != "" {
		if window.From, err = time.Parse(dateLayout, from); err != nil {
			return models.DateRange{}, fmt.Errorf("--from '%s' is not YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if window.To, err = time.Parse(dateLayout, to); err != nil {
			return models.DateRange{}, fmt.Errorf("--to '%s' is not YYYY-MM-DD", to)
		}
	}
	return window, nil
}
