// Package ledger defines the contract with the persistence layer that owns
// the durable bank transaction records.
package ledger

import (
	"context"
	"errors"
	"time"

	"swisscluster/camt-import/internal/models"

	"github.com/shopspring/decimal"
)

// ErrDuplicateReference is returned by Create when a record with the same
// bank account and reference number already exists. The commit orchestrator
// treats it as a skip, not a failure.
var ErrDuplicateReference = errors.New("transaction with this reference already exists")

// ErrUnknownAccount is returned when the bank account itself is invalid or
// missing. Unlike per-row failures, it aborts a whole commit.
var ErrUnknownAccount = errors.New("unknown bank account")

// Record is one persisted bank transaction.
type Record struct {
	Name            string
	BankAccountID   string
	Date            time.Time
	Deposit         decimal.Decimal
	Withdrawal      decimal.Decimal
	Description     string
	ReferenceNumber string
	Currency        string
	PartyType       string
	Party           string
}

// Store is the persistence contract consumed by the deduplicator and the
// commit orchestrator.
type Store interface {
	// FindByReference looks up a record by exact bank account and
	// reference number. Returns (nil, nil) when no record matches.
	FindByReference(ctx context.Context, bankAccountID, referenceNumber string) (*Record, error)

	// FindByAmountDate looks up a record by bank account, calendar date
	// and exact deposit/withdrawal amounts. Used as a fallback for banks
	// that omit reference numbers; may produce false positives. Returns
	// (nil, nil) when no record matches.
	FindByAmountDate(ctx context.Context, bankAccountID string, date time.Time, deposit, withdrawal decimal.Decimal) (*Record, error)

	// Create persists one transaction and returns the new record's name.
	Create(ctx context.Context, bankAccountID string, tx models.NormalizedTransaction) (string, error)
}
