// Package camt decodes CAMT.053 XML documents into normalized statement
// files ready for review.
package camt

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"swisscluster/camt-import/internal/importerror"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/xmlpath.v2"
)

// statusBooked is the only entry status that becomes a ledger candidate.
// Pending and informational entries are not importable.
const statusBooked = "BOOK"

// Parser decodes CAMT.053 payloads.
type Parser struct {
	logger logging.Logger
}

// NewParser creates a Parser.
func NewParser(logger logging.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse decodes one CAMT.053 XML document. Individual malformed entries are
// dropped and counted on the result; only a document-level problem
// (malformed XML, wrong schema, missing account header) is an error.
func (p *Parser) Parse(data []byte, sourceName string) (*models.StatementFile, error) {
	var doc models.CAMT053Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &importerror.ParseError{
			Kind:   importerror.MalformedXML,
			Source: sourceName,
			Err:    err,
		}
	}

	if !strings.Contains(doc.XMLName.Space, "camt.053") {
		return nil, &importerror.ParseError{
			Kind:   importerror.UnsupportedSchema,
			Source: sourceName,
		}
	}
	if len(doc.BkToCstmrStmt.Stmt) == 0 {
		return nil, &importerror.ParseError{
			Kind:   importerror.UnsupportedSchema,
			Source: sourceName,
		}
	}

	file := &models.StatementFile{SourceName: sourceName}

	// The first statement with an account identifier is authoritative for
	// the whole file.
	for _, stmt := range doc.BkToCstmrStmt.Stmt {
		if id := stmt.Acct.Identifier(); id != "" {
			file.BankAccountID = id
			break
		}
	}
	if file.BankAccountID == "" {
		return nil, &importerror.ParseError{
			Kind:   importerror.MissingAccount,
			Source: sourceName,
		}
	}

	totalEntries := 0
	for _, stmt := range doc.BkToCstmrStmt.Stmt {
		totalEntries += len(stmt.Ntry)
	}
	file.Transactions = make([]models.NormalizedTransaction, 0, totalEntries)

	for _, stmt := range doc.BkToCstmrStmt.Stmt {
		for i := range stmt.Ntry {
			entry := &stmt.Ntry[i]
			if entry.Sts.Code() != statusBooked {
				continue
			}

			tx, ok := p.entryToTransaction(entry, sourceName)
			if !ok {
				file.DroppedEntries++
				continue
			}
			file.Transactions = append(file.Transactions, tx)
		}
	}

	p.logger.Info("Parsed CAMT.053 document",
		logging.Field{Key: logging.FieldFile, Value: sourceName},
		logging.Field{Key: logging.FieldAccount, Value: file.BankAccountID},
		logging.Field{Key: logging.FieldCount, Value: len(file.Transactions)})

	return file, nil
}

// entryToTransaction normalizes one entry. ok is false when the entry lacks
// a usable date, amount or direction.
func (p *Parser) entryToTransaction(entry *models.Entry, sourceName string) (models.NormalizedTransaction, bool) {
	date, err := parseEntryDate(entry)
	if err != nil {
		p.logger.WithError(err).Warn("Dropping entry without usable date",
			logging.Field{Key: logging.FieldFile, Value: sourceName})
		return models.NormalizedTransaction{}, false
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(entry.Amt.Value))
	if err != nil {
		p.logger.WithError(err).Warn("Dropping entry with unparsable amount",
			logging.Field{Key: logging.FieldFile, Value: sourceName},
			logging.Field{Key: "value", Value: entry.Amt.Value})
		return models.NormalizedTransaction{}, false
	}

	// Bank charges in the same currency reduce the booked amount, so the
	// imported row reflects the net movement.
	if chrg := entry.Chrgs.TtlChrgsAndTaxAmt; chrg.Value != "" && chrg.Ccy == entry.Amt.Ccy {
		if charge, err := decimal.NewFromString(strings.TrimSpace(chrg.Value)); err == nil {
			amount = amount.Sub(charge)
		}
	}

	tx := models.NormalizedTransaction{
		Date:            date,
		Description:     entry.BuildDescription(),
		ReferenceNumber: SelectReference(entry),
		Currency:        entry.Amt.Ccy,
		Counterparty:    entry.Counterparty(),
	}

	switch {
	case entry.IsCredit():
		tx.Deposit = amount
	case entry.IsDebit():
		tx.Withdrawal = amount
	default:
		p.logger.Warn("Dropping entry without credit/debit indicator",
			logging.Field{Key: logging.FieldFile, Value: sourceName},
			logging.Field{Key: logging.FieldReference, Value: tx.ReferenceNumber})
		return models.NormalizedTransaction{}, false
	}

	return tx, true
}

// SelectReference picks the entry's reference number. Preference order:
// the bank-assigned account servicer reference, then a structured creditor
// reference (QRR references reformatted to the Swiss display format), then
// the proprietary bank transaction code some banks use as entry key.
func SelectReference(entry *models.Entry) string {
	if ref := strings.TrimSpace(entry.AcctSvcrRef); ref != "" {
		return ref
	}
	if ref, qrr := entry.StructuredReference(); ref != "" {
		if qrr {
			return FormatQRRReference(ref)
		}
		return strings.TrimSpace(ref)
	}
	return strings.TrimSpace(entry.BkTxCd.Prtry.Cd)
}

// FormatQRRReference formats a 27-digit Swiss QRR reference into its
// standard 2-5-5-5-5-5 grouping. Anything else is returned unchanged.
func FormatQRRReference(ref string) string {
	clean := strings.ReplaceAll(strings.TrimSpace(ref), " ", "")
	if len(clean) != 27 {
		return ref
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return ref
		}
	}
	groups := []string{clean[0:2], clean[2:7], clean[7:12], clean[12:17], clean[17:22], clean[22:27]}
	return strings.Join(groups, " ")
}

// entryDateLayouts are tried in order when parsing booking/value dates.
var entryDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// parseEntryDate derives the booking date of an entry, falling back to the
// value date when no booking date is present.
func parseEntryDate(entry *models.Entry) (time.Time, error) {
	text := entry.BookgDt.Text()
	if text == "" {
		text = entry.ValDt.Text()
	}
	if text == "" {
		return time.Time{}, fmt.Errorf("entry has neither booking nor value date")
	}

	var lastErr error
	for _, layout := range entryDateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			// Normalize to a calendar date.
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidateBytes is a cheap sniff that reports whether the payload looks like
// a CAMT.053 document, without a full decode. It checks for the
// BkToCstmrStmt element and a statement identifier.
func ValidateBytes(data []byte) bool {
	root, err := xmlpath.Parse(bytes.NewReader(data))
	if err != nil {
		return false
	}
	if _, ok := xmlpath.MustCompile("//BkToCstmrStmt").String(root); !ok {
		return false
	}
	if _, ok := xmlpath.MustCompile("//BkToCstmrStmt/Stmt/Id").String(root); !ok {
		return false
	}
	return true
}
