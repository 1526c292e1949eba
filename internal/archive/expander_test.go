package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"swisscluster/camt-import/internal/camt"
	"swisscluster/camt-import/internal/importerror"
	"swisscluster/camt-import/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validStatement = `<?xml version="1.0" encoding="UTF-8"?>
<Document xmlns="urn:iso:std:iso:20022:tech:xsd:camt.053.001.04">
  <BkToCstmrStmt>
    <Stmt>
      <Id>STMT-1</Id>
      <Acct><Id><IBAN>CH9300762011623852957</IBAN></Id></Acct>
      <Ntry>
        <Amt Ccy="CHF">10.00</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <Sts>BOOK</Sts>
        <BookgDt><Dt>2024-01-15</Dt></BookgDt>
        <AcctSvcrRef>REF-1</AcctSvcrRef>
      </Ntry>
    </Stmt>
  </BkToCstmrStmt>
</Document>`

func buildZip(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range members {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newExpander() *Expander {
	logger := &logging.MockLogger{}
	return NewExpander(camt.NewParser(logger), logger)
}

func TestExpand_MixedArchive(t *testing.T) {
	zipBytes := buildZip(t, map[string][]byte{
		"statement.xml": []byte(validStatement),
		"readme.txt":    []byte("not a statement"),
		"broken.xml":    []byte("<Document><unclosed"),
	})

	results, err := newExpander().Expand(zipBytes)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := make(map[string]EntryResult, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}

	parsed := byName["statement.xml"]
	assert.False(t, parsed.Skipped())
	require.NotNil(t, parsed.File)
	assert.Equal(t, "CH9300762011623852957", parsed.File.BankAccountID)
	assert.Len(t, parsed.File.Transactions, 1)

	assert.Equal(t, importerror.SkipNotXml, byName["readme.txt"].SkipReason)
	assert.Contains(t, byName["broken.xml"].SkipReason, importerror.SkipParseFailed)
	assert.Nil(t, byName["broken.xml"].File)
}

func TestExpand_EmptyMember(t *testing.T) {
	zipBytes := buildZip(t, map[string][]byte{
		"empty.xml": {},
	})

	results, err := newExpander().Expand(zipBytes)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, importerror.SkipEmptyFile, results[0].SkipReason)
}

func TestExpand_IgnoresDirectories(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	_, err := w.Create("nested/")
	require.NoError(t, err)
	f, err := w.Create("nested/statement.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(validStatement))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	results, err := newExpander().Expand(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "statement.xml", results[0].Name)
	assert.False(t, results[0].Skipped())
}

func TestExpand_CorruptArchive(t *testing.T) {
	_, err := newExpander().Expand([]byte("definitely not a zip"))
	assert.Error(t, err)
}
