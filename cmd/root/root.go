// Package root contains the root command for the application.
package root

import (
	"fmt"
	"time"

	"swisscluster/camt-import/internal/archive"
	"swisscluster/camt-import/internal/camt"
	"swisscluster/camt-import/internal/collector"
	"swisscluster/camt-import/internal/config"
	"swisscluster/camt-import/internal/importer"
	"swisscluster/camt-import/internal/ledger/sqlitestore"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/party"
	"swisscluster/camt-import/internal/reviewsheet"

	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands.
	Log logging.Logger = logging.NewLogrusAdapter("info", "text")

	// Cfg is the loaded application configuration, available after
	// PersistentPreRun.
	Cfg *config.Config

	// Cmd is the root command.
	Cmd = &cobra.Command{
		Use:   "camt-import",
		Short: "Import CAMT.053 bank statements into a transaction ledger.",
		Long: `camt-import parses CAMT.053 XML bank statements (single files, ZIP
archives or whole batch locations), writes the rows to a review sheet and
commits the approved rows to the ledger without creating duplicates.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to camt-import!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()

			cfg, err := config.Load()
			if err != nil {
				Log.WithError(err).Fatal("Failed to load configuration")
			}
			Cfg = cfg

			Log = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
			reviewsheet.SetDelimiter([]rune(cfg.Sheet.Delimiter)[0])
		},
	}
)

// Init initializes the root command and its persistent flags.
func Init() {
	Cmd.PersistentFlags().StringP("account", "a", "", "Bank account the rows belong to")
}

// AccountFlag returns the persistent --account value.
func AccountFlag(cmd *cobra.Command) string {
	account, _ := cmd.Flags().GetString("account")
	return account
}

// BuildService assembles the import pipeline from the loaded configuration.
// The returned cleanup closes the ledger store and must be called when the
// command is done.
func BuildService() (*importer.Service, func(), error) {
	if Cfg == nil {
		return nil, nil, fmt.Errorf("configuration is not initialized")
	}

	store, err := sqlitestore.Open(Cfg.Ledger.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger store: %w", err)
	}

	var resolver party.Resolver
	if Cfg.Parties.File != "" {
		dir, err := party.Load(Cfg.Parties.File, Log)
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("load party directory: %w", err)
		}
		resolver = dir
	}

	parser := camt.NewParser(Log)
	expander := archive.NewExpander(parser, Log)
	col := collector.New(parser, expander, Log,
		collector.WithWorkers(Cfg.Batch.Workers),
		collector.WithFileTimeout(time.Duration(Cfg.Batch.FileTimeoutSeconds)*time.Second))

	svc := importer.New(store, resolver, parser, expander, col, Log)
	cleanup := func() {
		if err := store.Close(); err != nil {
			Log.WithError(err).Warn("Failed to close ledger store")
		}
	}
	return svc, cleanup, nil
}
