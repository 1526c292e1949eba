package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizedTransaction is one statement entry normalized for review.
// Exactly one of Deposit and Withdrawal is nonzero.
type NormalizedTransaction struct {
	Date            time.Time       `json:"date" yaml:"date"`
	Deposit         decimal.Decimal `json:"deposit" yaml:"deposit"`
	Withdrawal      decimal.Decimal `json:"withdrawal" yaml:"withdrawal"`
	Description     string          `json:"description" yaml:"description"`
	ReferenceNumber string          `json:"reference_number" yaml:"reference_number"`
	Currency        string          `json:"currency" yaml:"currency"`

	// Counterparty is the name of the other side of the movement as stated
	// by the bank, used for party resolution.
	Counterparty string `json:"counterparty,omitempty" yaml:"counterparty,omitempty"`

	// PartyType and Party are filled by the party resolver when a match is
	// found in the party directory.
	PartyType string `json:"party_type,omitempty" yaml:"party_type,omitempty"`
	Party     string `json:"party,omitempty" yaml:"party,omitempty"`

	// ExistingTransaction is the name of an already-persisted ledger
	// transaction matching this row. Set by the deduplicator; a non-empty
	// value means the row must not be created again.
	ExistingTransaction string `json:"existing_transaction,omitempty" yaml:"existing_transaction,omitempty"`

	// AmbiguousMatch marks rows whose existing-transaction match came from
	// the date+amount fallback rather than an exact reference match. Such
	// matches can be false positives and need reviewer attention.
	AmbiguousMatch bool `json:"ambiguous_match,omitempty" yaml:"ambiguous_match,omitempty"`
}

// IsDeposit returns true when the row is an incoming movement.
func (t NormalizedTransaction) IsDeposit() bool {
	return t.Deposit.IsPositive()
}

// Amount returns the nonzero side of the movement.
func (t NormalizedTransaction) Amount() decimal.Decimal {
	if t.IsDeposit() {
		return t.Deposit
	}
	return t.Withdrawal
}

// StatementFile is one successfully parsed CAMT.053 source document.
type StatementFile struct {
	SourceName    string                  `json:"source_name"`
	BankAccountID string                  `json:"bank_account_id"`
	Transactions  []NormalizedTransaction `json:"transactions"`

	// DroppedEntries counts malformed entries skipped inside an otherwise
	// parsable document.
	DroppedEntries int `json:"dropped_entries,omitempty"`
}

// ProcessingSummary aggregates a batch or archive run. The invariant
// ProcessedFiles + len(SkippedFiles) == TotalFiles holds after every run.
type ProcessingSummary struct {
	TotalFiles     int               `json:"total_files"`
	ProcessedFiles int               `json:"processed_files"`
	SkippedFiles   []string          `json:"skipped_files"`
	SkipReasons    map[string]string `json:"skip_reasons"`
}

// RecordProcessed counts a successfully processed file.
func (s *ProcessingSummary) RecordProcessed() {
	s.TotalFiles++
	s.ProcessedFiles++
}

// RecordSkip counts a skipped file with its reason.
func (s *ProcessingSummary) RecordSkip(name, reason string) {
	s.TotalFiles++
	s.SkippedFiles = append(s.SkippedFiles, name)
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]string)
	}
	s.SkipReasons[name] = reason
}

// CreatedDoc links a committed row's reference number to the identifier of
// the ledger record created for it.
type CreatedDoc struct {
	ReferenceNumber string `json:"reference_number"`
	DocName         string `json:"doc_name"`
}

// FailedRow records a per-row creation failure during commit.
type FailedRow struct {
	ReferenceNumber string `json:"reference_number"`
	Error           string `json:"error"`
}

// CommitReport is the result of persisting selected rows. CreatedDocs is
// keyed by reference number and carries no ordering guarantee.
type CommitReport struct {
	CreatedDocs []CreatedDoc `json:"created_docs"`
	SkippedDocs []string     `json:"skipped_docs"`
	FailedRows  []FailedRow  `json:"failed_rows,omitempty"`
	Message     string       `json:"message"`
}

// ImportSource identifies where statement data comes from: exactly one of a
// single file reference or a batch folder/URL locator. Construct values with
// SingleFile or Batch.
type ImportSource struct {
	file  string
	batch string
}

// SingleFile creates a source for one statement file (path or URL).
func SingleFile(ref string) ImportSource {
	return ImportSource{file: ref}
}

// Batch creates a source for a folder path or cloud-storage locator.
func Batch(location string) ImportSource {
	return ImportSource{batch: location}
}

// IsBatch reports whether the source is a batch location.
func (s ImportSource) IsBatch() bool {
	return s.batch != ""
}

// Ref returns the single-file reference or the batch locator.
func (s ImportSource) Ref() string {
	if s.IsBatch() {
		return s.batch
	}
	return s.file
}

// Validate ensures exactly one of file reference and batch locator is set.
func (s ImportSource) Validate() error {
	if s.file == "" && s.batch == "" {
		return fmt.Errorf("import source is empty: provide a file reference or a batch location")
	}
	if s.file != "" && s.batch != "" {
		return fmt.Errorf("import source is ambiguous: provide either a file reference or a batch location, not both")
	}
	return nil
}

// DateRange is an inclusive date window. A zero From or To leaves that side
// unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Bounded reports whether at least one side of the window is set.
func (r DateRange) Bounded() bool {
	return !r.From.IsZero() || !r.To.IsZero()
}

// Contains reports whether date falls inside the window, bounds included.
func (r DateRange) Contains(date time.Time) bool {
	if !r.From.IsZero() && date.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && date.After(r.To) {
		return false
	}
	return true
}
