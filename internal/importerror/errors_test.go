package importerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Kind: MalformedXML, Source: "a.xml", Err: fmt.Errorf("unexpected EOF")}
	assert.Equal(t, "MalformedXml: cannot parse 'a.xml': unexpected EOF", err.Error())

	bare := &ParseError{Kind: MissingAccount, Source: "b.xml"}
	assert.Equal(t, "MissingAccount: cannot parse 'b.xml'", bare.Error())
}

func TestParseError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ParseError{Kind: UnsupportedSchema, Source: "c.xml", Err: cause}
	assert.ErrorIs(t, err, cause)
}

func TestSkipWithDetail(t *testing.T) {
	assert.Equal(t, "FetchFailed: connection refused", SkipWithDetail(SkipFetchFailed, "connection refused"))
	assert.Equal(t, "NotXml", SkipWithDetail(SkipNotXml, ""))
}

func TestLocationUnreachableError(t *testing.T) {
	cause := errors.New("no such directory")
	err := &LocationUnreachableError{Location: "/x", Err: cause}
	assert.Contains(t, err.Error(), "LocationUnreachable")
	assert.Contains(t, err.Error(), "/x")
	assert.ErrorIs(t, err, cause)
}

func TestInvalidDateRangeError(t *testing.T) {
	err := &InvalidDateRangeError{From: "2024-04-01", To: "2024-03-01"}
	assert.Equal(t, "InvalidDateRange: from date 2024-04-01 is after to date 2024-03-01", err.Error())
}

func TestMissingPartyError(t *testing.T) {
	err := &MissingPartyError{Rows: []int{0, 3}}
	assert.Equal(t, "MissingParty: rows [0, 3] have no party assigned", err.Error())
}
