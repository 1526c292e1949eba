// Package importer wires the import pipeline together: it previews
// statement sources for human review and commits reviewer-approved rows to
// the ledger.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"swisscluster/camt-import/internal/archive"
	"swisscluster/camt-import/internal/camt"
	"swisscluster/camt-import/internal/collector"
	"swisscluster/camt-import/internal/datefilter"
	"swisscluster/camt-import/internal/dedup"
	"swisscluster/camt-import/internal/importerror"
	"swisscluster/camt-import/internal/ledger"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"
	"swisscluster/camt-import/internal/party"
	"swisscluster/camt-import/internal/source"
)

const dateLayout = "2006-01-02"

// Service is the invocation surface called by the CLI or a review UI.
type Service struct {
	store     ledger.Store
	resolver  party.Resolver
	parser    *camt.Parser
	expander  *archive.Expander
	collector *collector.Collector
	annotator *dedup.Annotator
	logger    logging.Logger
}

// New creates a Service. resolver may be nil when no party directory is
// configured; party enrichment is then skipped.
func New(store ledger.Store, resolver party.Resolver, parser *camt.Parser, expander *archive.Expander, col *collector.Collector, logger logging.Logger) *Service {
	return &Service{
		store:     store,
		resolver:  resolver,
		parser:    parser,
		expander:  expander,
		collector: col,
		annotator: dedup.NewAnnotator(store, logger),
		logger:    logger,
	}
}

// PreviewResult is the non-persisting outcome presented for review.
type PreviewResult struct {
	Files   []models.StatementFile
	Summary models.ProcessingSummary

	// BankAccountID is the account the batch resolves to: the caller's
	// hint when given, otherwise the first parsed file's header account.
	BankAccountID string
}

// Rows flattens the transactions of all parsed files in order.
func (r *PreviewResult) Rows() []models.NormalizedTransaction {
	var rows []models.NormalizedTransaction
	for _, f := range r.Files {
		rows = append(rows, f.Transactions...)
	}
	return rows
}

// PreviewSource parses the source, restricts rows to the date window,
// enriches them with party assignments and marks rows already present in the
// ledger. Nothing is persisted. The date window is validated before any file
// is opened.
func (s *Service) PreviewSource(ctx context.Context, src models.ImportSource, window models.DateRange, accountHint string) (*PreviewResult, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}

	var result *PreviewResult
	var err error
	if src.IsBatch() {
		result, err = s.previewBatch(ctx, src.Ref())
	} else {
		result, err = s.previewSingle(ctx, src.Ref())
	}
	if err != nil {
		return nil, err
	}

	// Resolve the effective account before annotating: deduplication must run
	// against the account the commit will write to, which is the caller's
	// hint when given, not each file's header account.
	result.BankAccountID = accountHint
	if result.BankAccountID == "" && len(result.Files) > 0 {
		result.BankAccountID = result.Files[0].BankAccountID
	}

	for i := range result.Files {
		file := &result.Files[i]
		file.Transactions = datefilter.Filter(file.Transactions, window)
		s.enrich(file.Transactions)
		if err := s.annotator.Annotate(ctx, file.Transactions, result.BankAccountID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// previewSingle fetches and parses one file reference; ZIP payloads are
// expanded like a small batch.
func (s *Service) previewSingle(ctx context.Context, ref string) (*PreviewResult, error) {
	data, err := source.FetchOne(ctx, ref, s.logger)
	if err != nil {
		return nil, err
	}

	result := &PreviewResult{}
	name := path.Base(ref)

	if strings.EqualFold(path.Ext(ref), ".zip") {
		members, err := s.expander.Expand(data)
		if err != nil {
			return nil, err
		}
		for _, member := range members {
			if member.Skipped() {
				result.Summary.RecordSkip(member.Name, member.SkipReason)
				continue
			}
			result.Summary.RecordProcessed()
			result.Files = append(result.Files, *member.File)
		}
		return result, nil
	}

	file, err := s.parser.Parse(data, name)
	if err != nil {
		return nil, err
	}
	result.Summary.RecordProcessed()
	result.Files = append(result.Files, *file)
	return result, nil
}

func (s *Service) previewBatch(ctx context.Context, location string) (*PreviewResult, error) {
	files, summary, err := s.collector.Collect(ctx, location)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Files: files, Summary: summary}, nil
}

// enrich assigns parties to rows that don't have one yet. Enrichment never
// blocks a preview: an unresolved party is a normal outcome.
func (s *Service) enrich(transactions []models.NormalizedTransaction) {
	if s.resolver == nil {
		return
	}
	for i := range transactions {
		tx := &transactions[i]
		if tx.Party != "" {
			continue
		}
		if m := s.resolver.Resolve(tx.Counterparty, tx.Description); m != nil {
			tx.PartyType = m.PartyType
			tx.Party = m.Party
		}
	}
}

// Commit persists the reviewer-approved rows as ledger transactions.
//
// Rows whose party is missing reject the whole commit before any write.
// Each remaining row's existence is re-checked immediately before creation,
// so a duplicate created by a concurrent commit becomes a skip instead of a
// second record; this is a best-effort check-then-act, not a transactional
// guarantee. A per-row creation failure is recorded and processing
// continues; only an unknown bank account aborts the call.
func (s *Service) Commit(ctx context.Context, rows []models.NormalizedTransaction, bankAccountID string) (*models.CommitReport, error) {
	if bankAccountID == "" {
		return nil, fmt.Errorf("bank account is not set; preview the file first")
	}

	if err := validateParties(rows); err != nil {
		return nil, err
	}

	report := &models.CommitReport{}
	for _, row := range rows {
		if row.ExistingTransaction != "" {
			report.SkippedDocs = append(report.SkippedDocs, rowKey(row))
			continue
		}

		existing, err := s.recheck(ctx, row, bankAccountID)
		if err != nil {
			report.FailedRows = append(report.FailedRows, models.FailedRow{
				ReferenceNumber: row.ReferenceNumber,
				Error:           err.Error(),
			})
			continue
		}
		if existing != nil {
			s.logger.Info("Row was imported concurrently, skipping",
				logging.Field{Key: logging.FieldAccount, Value: bankAccountID},
				logging.Field{Key: logging.FieldReference, Value: row.ReferenceNumber})
			report.SkippedDocs = append(report.SkippedDocs, rowKey(row))
			continue
		}

		name, err := s.store.Create(ctx, bankAccountID, row)
		switch {
		case errors.Is(err, ledger.ErrDuplicateReference):
			report.SkippedDocs = append(report.SkippedDocs, rowKey(row))
		case errors.Is(err, ledger.ErrUnknownAccount):
			return nil, fmt.Errorf("commit aborted: %w", err)
		case err != nil:
			s.logger.WithError(err).Error("Failed to create bank transaction",
				logging.Field{Key: logging.FieldReference, Value: row.ReferenceNumber})
			report.FailedRows = append(report.FailedRows, models.FailedRow{
				ReferenceNumber: row.ReferenceNumber,
				Error:           err.Error(),
			})
		default:
			report.CreatedDocs = append(report.CreatedDocs, models.CreatedDoc{
				ReferenceNumber: row.ReferenceNumber,
				DocName:         name,
			})
		}
	}

	report.Message = commitMessage(report)
	s.logger.Info("Commit finished",
		logging.Field{Key: logging.FieldAccount, Value: bankAccountID},
		logging.Field{Key: "created", Value: len(report.CreatedDocs)},
		logging.Field{Key: "skipped", Value: len(report.SkippedDocs)},
		logging.Field{Key: "failed", Value: len(report.FailedRows)})

	return report, nil
}

// recheck repeats the deduplication lookup for one row right before its
// creation.
func (s *Service) recheck(ctx context.Context, row models.NormalizedTransaction, bankAccountID string) (*ledger.Record, error) {
	if row.ReferenceNumber != "" {
		return s.store.FindByReference(ctx, bankAccountID, row.ReferenceNumber)
	}
	return s.store.FindByAmountDate(ctx, bankAccountID, row.Date, row.Deposit, row.Withdrawal)
}

// validateParties rejects the commit when any to-be-created row lacks a
// party assignment. Rows already matched to an existing transaction are
// exempt; they are skipped, not created.
func validateParties(rows []models.NormalizedTransaction) error {
	var missing []int
	for i, row := range rows {
		if row.ExistingTransaction != "" {
			continue
		}
		if row.Party == "" || row.PartyType == "" {
			missing = append(missing, i)
		}
	}
	if len(missing) > 0 {
		return &importerror.MissingPartyError{Rows: missing}
	}
	return nil
}

// rowKey identifies a skipped row: its reference number, or the matched
// ledger record name for reference-less rows.
func rowKey(row models.NormalizedTransaction) string {
	if row.ReferenceNumber != "" {
		return row.ReferenceNumber
	}
	return row.ExistingTransaction
}

func validateWindow(window models.DateRange) error {
	if !window.From.IsZero() && !window.To.IsZero() && window.From.After(window.To) {
		return &importerror.InvalidDateRangeError{
			From: window.From.Format(dateLayout),
			To:   window.To.Format(dateLayout),
		}
	}
	return nil
}

func commitMessage(report *models.CommitReport) string {
	msg := fmt.Sprintf("Successfully created %d bank transaction(s).", len(report.CreatedDocs))
	if len(report.SkippedDocs) > 0 {
		msg += fmt.Sprintf(" Skipped %d already-imported row(s).", len(report.SkippedDocs))
	}
	if len(report.FailedRows) > 0 {
		msg += fmt.Sprintf(" %d row(s) failed and were not created.", len(report.FailedRows))
	}
	return msg
}
