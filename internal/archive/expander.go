// Package archive expands ZIP payloads into per-member statement parse
// outcomes.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"swisscluster/camt-import/internal/camt"
	"swisscluster/camt-import/internal/importerror"
	"swisscluster/camt-import/internal/logging"
	"swisscluster/camt-import/internal/models"
)

// EntryResult is the outcome for one archive member: either a parsed
// statement file or a skip reason. Exactly one of File and SkipReason is
// set.
type EntryResult struct {
	Name       string
	File       *models.StatementFile
	SkipReason string
}

// Skipped reports whether the member was skipped.
func (r EntryResult) Skipped() bool {
	return r.SkipReason != ""
}

// Expander extracts CAMT.053 files from ZIP archives.
type Expander struct {
	parser *camt.Parser
	logger logging.Logger
}

// NewExpander creates an Expander delegating XML payloads to parser.
func NewExpander(parser *camt.Parser, logger logging.Logger) *Expander {
	return &Expander{parser: parser, logger: logger}
}

// Expand lists the archive members in order and attempts to parse each one.
// A bad member is skipped with a reason; only an unreadable archive is an
// error.
func (e *Expander) Expand(zipBytes []byte) ([]EntryResult, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipBytes), int64(len(zipBytes)))
	if err != nil {
		return nil, fmt.Errorf("cannot open zip archive: %w", err)
	}

	results := make([]EntryResult, 0, len(reader.File))
	for _, member := range reader.File {
		if member.FileInfo().IsDir() {
			continue
		}
		results = append(results, e.expandMember(member))
	}
	return results, nil
}

func (e *Expander) expandMember(member *zip.File) EntryResult {
	name := path.Base(member.Name)
	result := EntryResult{Name: name}

	if !strings.EqualFold(path.Ext(member.Name), ".xml") {
		result.SkipReason = importerror.SkipNotXml
		return result
	}
	if member.UncompressedSize64 == 0 {
		result.SkipReason = importerror.SkipEmptyFile
		return result
	}

	data, err := readMember(member)
	if err != nil {
		e.logger.WithError(err).Warn("Failed to extract archive member",
			logging.Field{Key: logging.FieldFile, Value: name})
		result.SkipReason = importerror.SkipWithDetail(importerror.SkipParseFailed, err.Error())
		return result
	}
	if len(data) == 0 {
		result.SkipReason = importerror.SkipEmptyFile
		return result
	}

	file, err := e.parser.Parse(data, name)
	if err != nil {
		e.logger.WithError(err).Warn("Skipping unparsable archive member",
			logging.Field{Key: logging.FieldFile, Value: name})
		result.SkipReason = importerror.SkipWithDetail(importerror.SkipParseFailed, err.Error())
		return result
	}

	result.File = file
	return result
}

func readMember(member *zip.File) ([]byte, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rc.Close()
	}()
	return io.ReadAll(rc)
}
