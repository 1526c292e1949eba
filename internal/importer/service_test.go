package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"swisscluster/camt-import/internal/archive"
	"swisscluster/camt-import/internal/camt"
	"swisscluster/camt-import/internal/collector"
	"swisscluster/camt-import/internal/importerror"
	"swisscluster/camt-import/internal/ledger"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"
	"swisscluster/camt-import/internal/party"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAccount = "CH9300762011623852957"

func statementXML(entries string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:camt.053.001.04">
  <BkToCstmrStmt>
    <Stmt>
      <Id>STMT-1</Id>
      <Acct><Id><IBAN>CH93 0076 2011 6238 5295 7</IBAN></Id></Acct>%s
    </Stmt>
  </BkToCstmrStmt>
</Document>`, entries))
}

func creditEntry(amount, ref, date, counterparty string) string {
	return fmt.Sprintf(`
      <Ntry>
        <Amt Ccy="CHF">%s</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <Sts>BOOK</Sts>
        <BookgDt><Dt>%s</Dt></BookgDt>
        <AcctSvcrRef>%s</AcctSvcrRef>
        <NtryDtls>
          <TxDtls>
            <RltdPties><Dbtr><Nm>%s</Nm></Dbtr></RltdPties>
          </TxDtls>
        </NtryDtls>
      </Ntry>`, amount, date, ref, counterparty)
}

func newService(store ledger.Store, resolver party.Resolver) *Service {
	logger := &logging.MockLogger{}
	parser := camt.NewParser(logger)
	expander := archive.NewExpander(parser, logger)
	col := collector.New(parser, expander, logger)
	return New(store, resolver, parser, expander, col, logger)
}

func writeStatement(t *testing.T, entries string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.xml")
	require.NoError(t, os.WriteFile(path, statementXML(entries), 0o600))
	return path
}

func TestPreview_SingleFile(t *testing.T) {
	path := writeStatement(t, creditEntry("150.00", "REF-1", "2024-03-10", "Acme Corporation"))

	resolver := party.NewDirectory(
		[]party.Entry{{Name: "CUST-ACME", DisplayName: "Acme Corporation"}},
		nil, &logging.MockLogger{})
	svc := newService(ledger.NewMockStore(), resolver)

	result, err := svc.PreviewSource(context.Background(), models.SingleFile(path), models.DateRange{}, "")
	require.NoError(t, err)

	assert.Equal(t, testAccount, result.BankAccountID)
	assert.Equal(t, 1, result.Summary.ProcessedFiles)

	rows := result.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "REF-1", rows[0].ReferenceNumber)
	assert.Equal(t, party.TypeCustomer, rows[0].PartyType)
	assert.Equal(t, "CUST-ACME", rows[0].Party)
	assert.Empty(t, rows[0].ExistingTransaction)
}

func TestPreview_MarksExistingRows(t *testing.T) {
	path := writeStatement(t, creditEntry("150.00", "REF-1", "2024-03-10", "Acme Corporation"))

	store := ledger.NewMockStore()
	store.Seed(ledger.Record{
		Name:            "BTX-OLD",
		BankAccountID:   testAccount,
		ReferenceNumber: "REF-1",
	})
	svc := newService(store, nil)

	result, err := svc.PreviewSource(context.Background(), models.SingleFile(path), models.DateRange{}, "")
	require.NoError(t, err)

	rows := result.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "BTX-OLD", rows[0].ExistingTransaction)
	assert.False(t, rows[0].AmbiguousMatch)
}

func TestPreview_DateWindowFilters(t *testing.T) {
	path := writeStatement(t,
		creditEntry("10.00", "R1", "2024-03-01", "A")+
			creditEntry("20.00", "R2", "2024-03-15", "B")+
			creditEntry("30.00", "R3", "2024-03-31", "C"))
	svc := newService(ledger.NewMockStore(), nil)

	window := models.DateRange{
		From: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
	}
	result, err := svc.PreviewSource(context.Background(), models.SingleFile(path), window, "")
	require.NoError(t, err)

	rows := result.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "R2", rows[0].ReferenceNumber)
}

func TestPreview_InvalidWindowRejectedBeforeFileAccess(t *testing.T) {
	svc := newService(ledger.NewMockStore(), nil)

	window := models.DateRange{
		From: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	// The path does not exist: the window must be rejected before the file
	// is touched.
	_, err := svc.PreviewSource(context.Background(), models.SingleFile("/no/such/file.xml"), window, "")
	require.Error(t, err)

	var rangeErr *importerror.InvalidDateRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestPreview_EmptySourceRejected(t *testing.T) {
	svc := newService(ledger.NewMockStore(), nil)
	_, err := svc.PreviewSource(context.Background(), models.ImportSource{}, models.DateRange{}, "")
	assert.Error(t, err)
}

func TestPreview_AccountHintWins(t *testing.T) {
	path := writeStatement(t, creditEntry("10.00", "R1", "2024-03-01", "A"))
	svc := newService(ledger.NewMockStore(), nil)

	result, err := svc.PreviewSource(context.Background(), models.SingleFile(path), models.DateRange{}, "HINTED-ACCOUNT")
	require.NoError(t, err)
	assert.Equal(t, "HINTED-ACCOUNT", result.BankAccountID)
}

func TestPreview_DedupRunsAgainstHintedAccount(t *testing.T) {
	path := writeStatement(t, creditEntry("150.00", "REF-1", "2024-03-10", "Acme Corporation"))

	// The reference exists only under the parsed header account. A commit
	// would write to the hinted account, where the row is new, so it must not
	// be marked as existing.
	store := ledger.NewMockStore()
	store.Seed(ledger.Record{
		Name:            "BTX-OLD",
		BankAccountID:   testAccount,
		ReferenceNumber: "REF-1",
	})
	svc := newService(store, nil)

	result, err := svc.PreviewSource(context.Background(), models.SingleFile(path), models.DateRange{}, "HINTED-ACCOUNT")
	require.NoError(t, err)

	rows := result.Rows()
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].ExistingTransaction)
}

func TestPreview_DedupMatchesInHintedAccount(t *testing.T) {
	path := writeStatement(t, creditEntry("150.00", "REF-1", "2024-03-10", "Acme Corporation"))

	store := ledger.NewMockStore()
	store.Seed(ledger.Record{
		Name:            "BTX-HINT",
		BankAccountID:   "HINTED-ACCOUNT",
		ReferenceNumber: "REF-1",
	})
	svc := newService(store, nil)

	result, err := svc.PreviewSource(context.Background(), models.SingleFile(path), models.DateRange{}, "HINTED-ACCOUNT")
	require.NoError(t, err)

	rows := result.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "BTX-HINT", rows[0].ExistingTransaction)
}

func TestPreview_BatchFolder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.xml"),
		statementXML(creditEntry("10.00", "R1", "2024-03-01", "A")), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.xml"),
		statementXML(creditEntry("20.00", "R2", "2024-03-02", "B")), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.xml"), []byte("<broken"), 0o600))

	svc := newService(ledger.NewMockStore(), nil)

	result, err := svc.PreviewSource(context.Background(), models.Batch(dir), models.DateRange{}, "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.TotalFiles)
	assert.Equal(t, 2, result.Summary.ProcessedFiles)
	assert.Len(t, result.Rows(), 2)
	assert.Equal(t, testAccount, result.BankAccountID)
}

func newRow(ref, partyName string) models.NormalizedTransaction {
	return models.NormalizedTransaction{
		Date:            time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Deposit:         decimal.RequireFromString("150.00"),
		Currency:        "CHF",
		Description:     "test row",
		ReferenceNumber: ref,
		PartyType:       party.TypeCustomer,
		Party:           partyName,
	}
}

func TestCommit_CreatesRows(t *testing.T) {
	store := ledger.NewMockStore()
	svc := newService(store, nil)

	rows := []models.NormalizedTransaction{
		newRow("REF-1", "CUST-A"),
		newRow("REF-2", "CUST-B"),
	}
	report, err := svc.Commit(context.Background(), rows, testAccount)
	require.NoError(t, err)

	assert.Len(t, report.CreatedDocs, 2)
	assert.Empty(t, report.SkippedDocs)
	assert.Empty(t, report.FailedRows)
	assert.Len(t, store.Records(), 2)
	assert.Contains(t, report.Message, "2 bank transaction(s)")
}

func TestCommit_MissingPartyRejectsWholeCommit(t *testing.T) {
	store := ledger.NewMockStore()
	svc := newService(store, nil)

	incomplete := newRow("REF-2", "")
	incomplete.Party = ""

	rows := []models.NormalizedTransaction{
		newRow("REF-1", "CUST-A"),
		incomplete,
	}
	_, err := svc.Commit(context.Background(), rows, testAccount)
	require.Error(t, err)

	var missing *importerror.MissingPartyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []int{1}, missing.Rows)

	// Nothing was written, including the valid first row.
	assert.Empty(t, store.Records())
}

func TestCommit_ExistingRowsAreNotWritten(t *testing.T) {
	store := ledger.NewMockStore()
	svc := newService(store, nil)

	matched := newRow("REF-1", "")
	matched.Party = ""
	matched.ExistingTransaction = "BTX-OLD"

	report, err := svc.Commit(context.Background(), []models.NormalizedTransaction{matched}, testAccount)
	require.NoError(t, err)

	assert.Empty(t, report.CreatedDocs)
	assert.Equal(t, []string{"REF-1"}, report.SkippedDocs)
	assert.Empty(t, store.Records())
}

func TestCommit_RecheckSkipsConcurrentDuplicate(t *testing.T) {
	store := ledger.NewMockStore()
	store.Seed(ledger.Record{
		Name:            "BTX-RACE",
		BankAccountID:   testAccount,
		ReferenceNumber: "REF-1",
	})
	svc := newService(store, nil)

	// The row was previewed before the duplicate appeared, so it carries no
	// ExistingTransaction mark.
	report, err := svc.Commit(context.Background(), []models.NormalizedTransaction{newRow("REF-1", "CUST-A")}, testAccount)
	require.NoError(t, err)

	assert.Empty(t, report.CreatedDocs)
	assert.Equal(t, []string{"REF-1"}, report.SkippedDocs)
	assert.Len(t, store.Records(), 1)
}

func TestCommit_Idempotent(t *testing.T) {
	store := ledger.NewMockStore()
	svc := newService(store, nil)

	rows := []models.NormalizedTransaction{newRow("REF-1", "CUST-A")}

	first, err := svc.Commit(context.Background(), rows, testAccount)
	require.NoError(t, err)
	require.Len(t, first.CreatedDocs, 1)

	second, err := svc.Commit(context.Background(), rows, testAccount)
	require.NoError(t, err)
	assert.Empty(t, second.CreatedDocs)
	assert.Equal(t, []string{"REF-1"}, second.SkippedDocs)
	assert.Len(t, store.Records(), 1)
}

func TestCommit_PerRowFailureContinues(t *testing.T) {
	store := ledger.NewMockStore()
	store.CreateErr = errors.New("disk full")
	svc := newService(store, nil)

	rows := []models.NormalizedTransaction{
		newRow("REF-1", "CUST-A"),
		newRow("REF-2", "CUST-B"),
	}
	report, err := svc.Commit(context.Background(), rows, testAccount)
	require.NoError(t, err)

	assert.Empty(t, report.CreatedDocs)
	require.Len(t, report.FailedRows, 2)
	assert.Equal(t, "REF-1", report.FailedRows[0].ReferenceNumber)
	assert.Contains(t, report.FailedRows[0].Error, "disk full")
}

func TestCommit_UnknownAccountAborts(t *testing.T) {
	store := ledger.NewMockStore()
	store.CreateErr = ledger.ErrUnknownAccount
	svc := newService(store, nil)

	_, err := svc.Commit(context.Background(), []models.NormalizedTransaction{newRow("REF-1", "CUST-A")}, testAccount)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrUnknownAccount)
}

func TestCommit_RequiresAccount(t *testing.T) {
	svc := newService(ledger.NewMockStore(), nil)
	_, err := svc.Commit(context.Background(), []models.NormalizedTransaction{newRow("REF-1", "CUST-A")}, "")
	assert.Error(t, err)
}
