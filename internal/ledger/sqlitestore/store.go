// Package sqlitestore is the bundled SQLite implementation of the ledger
// persistence contract. Deployments integrating with an external accounting
// system provide their own ledger.Store instead.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"swisscluster/camt-import/internal/ledger"
	"swisscluster/camt-import/internal/models"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Store persists bank transactions in a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies pending
// migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const recordColumns = `name, bank_account, date, deposit, withdrawal, description,
	reference_number, currency, party_type, party`

// FindByReference implements ledger.Store.
func (s *Store) FindByReference(ctx context.Context, bankAccountID, referenceNumber string) (*ledger.Record, error) {
	if referenceNumber == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM bank_transactions
		 WHERE bank_account = ? AND reference_number = ?`,
		bankAccountID, referenceNumber)
	return scanRecord(row)
}

// FindByAmountDate implements ledger.Store. Amounts are stored as exact
// decimal strings, so equality comparison is done on the normalized string
// form.
func (s *Store) FindByAmountDate(ctx context.Context, bankAccountID string, date time.Time, deposit, withdrawal decimal.Decimal) (*ledger.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM bank_transactions
		 WHERE bank_account = ? AND date = ? AND deposit = ? AND withdrawal = ?`,
		bankAccountID, date.Format(dateLayout), deposit.String(), withdrawal.String())
	return scanRecord(row)
}

// Create implements ledger.Store. The partial unique index on
// (bank_account, reference_number) turns a concurrent duplicate insert into
// ErrDuplicateReference instead of a second record.
func (s *Store) Create(ctx context.Context, bankAccountID string, tx models.NormalizedTransaction) (string, error) {
	name := "BTX-" + uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bank_transactions (`+recordColumns+`, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		bankAccountID,
		tx.Date.Format(dateLayout),
		tx.Deposit.String(),
		tx.Withdrawal.String(),
		tx.Description,
		tx.ReferenceNumber,
		tx.Currency,
		tx.PartyType,
		tx.Party,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return "", ledger.ErrDuplicateReference
		}
		return "", fmt.Errorf("insert bank transaction: %w", err)
	}
	return name, nil
}

func scanRecord(row *sql.Row) (*ledger.Record, error) {
	var rec ledger.Record
	var dateStr, depositStr, withdrawalStr string

	err := row.Scan(&rec.Name, &rec.BankAccountID, &dateStr, &depositStr, &withdrawalStr,
		&rec.Description, &rec.ReferenceNumber, &rec.Currency, &rec.PartyType, &rec.Party)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan bank transaction: %w", err)
	}

	if rec.Date, err = time.Parse(dateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("stored date '%s' is invalid: %w", dateStr, err)
	}
	if rec.Deposit, err = decimal.NewFromString(depositStr); err != nil {
		return nil, fmt.Errorf("stored deposit '%s' is invalid: %w", depositStr, err)
	}
	if rec.Withdrawal, err = decimal.NewFromString(withdrawalStr); err != nil {
		return nil, fmt.Errorf("stored withdrawal '%s' is invalid: %w", withdrawalStr, err)
	}
	return &rec, nil
}
