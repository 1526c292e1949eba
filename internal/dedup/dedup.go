// Package dedup annotates normalized transactions with references to
// already-persisted ledger records, so reviewers don't re-create them.
package dedup

import (
	"context"
	"fmt"

	"swisscluster/camt-import/internal/ledger"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"
)

// Annotator checks candidate rows against the ledger store.
type Annotator struct {
	store  ledger.Store
	logger logging.Logger
}

// NewAnnotator creates an Annotator over the given store.
func NewAnnotator(store ledger.Store, logger logging.Logger) *Annotator {
	return &Annotator{store: store, logger: logger}
}

// Annotate sets ExistingTransaction on every row that matches a persisted
// record for the bank account. Rows with a reference number are matched
// exactly on (account, reference); rows without one fall back to matching
// on (account, date, deposit, withdrawal), and such matches are flagged as
// ambiguous because same-day same-amount movements can collide. No other
// row field is modified.
func (a *Annotator) Annotate(ctx context.Context, transactions []models.NormalizedTransaction, bankAccountID string) error {
	for i := range transactions {
		tx := &transactions[i]

		rec, ambiguous, err := a.lookup(ctx, tx, bankAccountID)
		if err != nil {
			return fmt.Errorf("duplicate check for reference '%s': %w", tx.ReferenceNumber, err)
		}
		if rec == nil {
			continue
		}

		tx.ExistingTransaction = rec.Name
		tx.AmbiguousMatch = ambiguous

		a.logger.Debug("Row matches existing ledger transaction",
			logging.Field{Key: logging.FieldAccount, Value: bankAccountID},
			logging.Field{Key: logging.FieldReference, Value: tx.ReferenceNumber},
			logging.Field{Key: "existing", Value: rec.Name},
			logging.Field{Key: "ambiguous", Value: ambiguous})
	}
	return nil
}

func (a *Annotator) lookup(ctx context.Context, tx *models.NormalizedTransaction, bankAccountID string) (*ledger.Record, bool, error) {
	if tx.ReferenceNumber != "" {
		rec, err := a.store.FindByReference(ctx, bankAccountID, tx.ReferenceNumber)
		return rec, false, err
	}
	rec, err := a.store.FindByAmountDate(ctx, bankAccountID, tx.Date, tx.Deposit, tx.Withdrawal)
	return rec, rec != nil, err
}
