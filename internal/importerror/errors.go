// Package importerror defines the error taxonomy of the import pipeline.
//
// Fatal single-file parse errors carry a ParseKind; per-file batch problems
// are expressed as skip reasons (see Skip constants) and never abort a run;
// caller-input problems (date range, missing party) are rejected before any
// side effect occurs.
package importerror

import (
	"fmt"
	"strings"
)

// ParseKind classifies fatal statement-parse failures.
type ParseKind string

const (
	// MalformedXML means the payload is not well-formed XML.
	MalformedXML ParseKind = "MalformedXml"
	// UnsupportedSchema means the XML is valid but not a CAMT.053 document.
	UnsupportedSchema ParseKind = "UnsupportedSchema"
	// MissingAccount means no bank account identifier was found in the header.
	MissingAccount ParseKind = "MissingAccount"
)

// Per-file skip reasons used in batch and archive processing summaries.
const (
	SkipNotXml      = "NotXml"
	SkipParseFailed = "ParseFailed"
	SkipEmptyFile   = "EmptyFile"
	SkipFetchFailed = "FetchFailed"
	SkipTimeout     = "Timeout"
)

// SkipWithDetail appends a detail message to a skip reason constant,
// e.g. "FetchFailed: connection refused".
func SkipWithDetail(reason, detail string) string {
	if detail == "" {
		return reason
	}
	return reason + ": " + detail
}

// ParseError is a fatal error decoding a single CAMT.053 document.
type ParseError struct {
	Kind   ParseKind
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: cannot parse '%s': %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: cannot parse '%s'", e.Kind, e.Source)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// LocationUnreachableError means the batch location itself could not be
// listed. Individual file failures never produce this.
type LocationUnreachableError struct {
	Location string
	Err      error
}

func (e *LocationUnreachableError) Error() string {
	return fmt.Sprintf("LocationUnreachable: cannot list '%s': %v", e.Location, e.Err)
}

func (e *LocationUnreachableError) Unwrap() error {
	return e.Err
}

// InvalidDateRangeError is a caller-side validation failure: the from date
// is after the to date. It is raised before any file is opened.
type InvalidDateRangeError struct {
	From string
	To   string
}

func (e *InvalidDateRangeError) Error() string {
	return fmt.Sprintf("InvalidDateRange: from date %s is after to date %s", e.From, e.To)
}

// MissingPartyError rejects a whole commit when selected rows lack a party
// assignment. Rows holds the zero-based indices of the offending rows.
type MissingPartyError struct {
	Rows []int
}

func (e *MissingPartyError) Error() string {
	idx := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		idx[i] = fmt.Sprintf("%d", r)
	}
	return fmt.Sprintf("MissingParty: rows [%s] have no party assigned", strings.Join(idx, ", "))
}
