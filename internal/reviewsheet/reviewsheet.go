// Package reviewsheet writes preview rows to a CSV file a human can edit
// and reads the edited sheet back for committing. The sheet is the review
// step: reviewers untick rows they don't want imported and fill in missing
// parties.
package reviewsheet

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Delimiter for sheet output, configurable for locales whose spreadsheet
// tools expect semicolons.
var Delimiter rune = ','

// SetDelimiter changes the CSV delimiter for both reading and writing.
func SetDelimiter(delim rune) {
	Delimiter = delim
}

// Row is one line of the review sheet.
type Row struct {
	Selected            bool   `csv:"selected"`
	Date                string `csv:"date"`
	Deposit             string `csv:"deposit"`
	Withdrawal          string `csv:"withdrawal"`
	Currency            string `csv:"currency"`
	Description         string `csv:"description"`
	ReferenceNumber     string `csv:"reference_number"`
	PartyType           string `csv:"party_type"`
	Party               string `csv:"party"`
	ExistingTransaction string `csv:"existing_transaction"`
	AmbiguousMatch      bool   `csv:"ambiguous_match"`
}

// Write renders the transactions as a review sheet. New rows are
// pre-selected; rows already matched to a ledger transaction are unticked so
// a careless commit can't re-import them.
func Write(transactions []models.NormalizedTransaction, path string, logger logging.Logger) error {
	if transactions == nil {
		return fmt.Errorf("cannot write a nil transaction list")
	}

	logger.Info("Writing review sheet",
		logging.Field{Key: logging.FieldFile, Value: path},
		logging.Field{Key: logging.FieldCount, Value: len(transactions)})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create review sheet: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close review sheet")
		}
	}()

	rows := make([]Row, 0, len(transactions))
	for _, tx := range transactions {
		rows = append(rows, rowFromTransaction(tx))
	}

	writer := csv.NewWriter(file)
	writer.Comma = Delimiter
	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(writer)); err != nil {
		return fmt.Errorf("write review sheet: %w", err)
	}
	return nil
}

// Read loads an edited review sheet and returns only the selected rows,
// converted back to transactions.
func Read(path string, logger logging.Logger) ([]models.NormalizedTransaction, error) {
	logger.Info("Reading review sheet", logging.Field{Key: logging.FieldFile, Value: path})

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open review sheet: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close review sheet")
		}
	}()

	var rows []Row
	reader := csv.NewReader(file)
	reader.Comma = Delimiter
	if err := gocsv.UnmarshalCSV(reader, &rows); err != nil {
		return nil, fmt.Errorf("parse review sheet %s: %w", path, err)
	}

	var selected []models.NormalizedTransaction
	for i, row := range rows {
		if !row.Selected {
			continue
		}
		tx, err := row.toTransaction()
		if err != nil {
			return nil, fmt.Errorf("review sheet row %d: %w", i+1, err)
		}
		selected = append(selected, tx)
	}

	logger.Info("Loaded review sheet",
		logging.Field{Key: logging.FieldCount, Value: len(rows)},
		logging.Field{Key: "selected", Value: len(selected)})
	return selected, nil
}

func rowFromTransaction(tx models.NormalizedTransaction) Row {
	return Row{
		// A row matched to an existing transaction defaults to unticked.
		Selected:            tx.ExistingTransaction == "",
		Date:                tx.Date.Format(dateLayout),
		Deposit:             tx.Deposit.StringFixed(2),
		Withdrawal:          tx.Withdrawal.StringFixed(2),
		Currency:            tx.Currency,
		Description:         tx.Description,
		ReferenceNumber:     tx.ReferenceNumber,
		PartyType:           tx.PartyType,
		Party:               tx.Party,
		ExistingTransaction: tx.ExistingTransaction,
		AmbiguousMatch:      tx.AmbiguousMatch,
	}
}

func (r Row) toTransaction() (models.NormalizedTransaction, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return models.NormalizedTransaction{}, fmt.Errorf("date '%s' is not YYYY-MM-DD: %w", r.Date, err)
	}
	deposit, err := parseAmount(r.Deposit)
	if err != nil {
		return models.NormalizedTransaction{}, fmt.Errorf("deposit: %w", err)
	}
	withdrawal, err := parseAmount(r.Withdrawal)
	if err != nil {
		return models.NormalizedTransaction{}, fmt.Errorf("withdrawal: %w", err)
	}

	return models.NormalizedTransaction{
		Date:                date,
		Deposit:             deposit,
		Withdrawal:          withdrawal,
		Currency:            r.Currency,
		Description:         r.Description,
		ReferenceNumber:     r.ReferenceNumber,
		PartyType:           r.PartyType,
		Party:               r.Party,
		ExistingTransaction: r.ExistingTransaction,
		AmbiguousMatch:      r.AmbiguousMatch,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount '%s' is not a number: %w", s, err)
	}
	return d, nil
}
