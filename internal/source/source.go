// Package source abstracts where statement files come from: a local
// directory, an HTTP(S) listing, or a Google Cloud Storage bucket.
package source

import (
	"context"
	"errors"
	"strings"

	"swisscluster/camt-import/internal/logging"
)

// ErrNotFound marks a definitive "file does not exist" outcome, as opposed
// to a transient fetch failure. Batch summaries report the two differently.
var ErrNotFound = errors.New("file not found")

// FileRef identifies one candidate file at a source.
type FileRef struct {
	// Name is the base file name, used in processing summaries.
	Name string
	// Path is the full source-specific locator used to fetch the file.
	Path string
}

// Source lists and fetches statement files from one location.
type Source interface {
	// List enumerates candidate files at the location. A List error means
	// the location itself is unreachable.
	List(ctx context.Context) ([]FileRef, error)

	// Fetch returns the raw bytes of one file. Returns an error wrapping
	// ErrNotFound when the file definitively does not exist.
	Fetch(ctx context.Context, ref FileRef) ([]byte, error)
}

// Resolve picks the source implementation for a locator: gs:// URIs go to
// Cloud Storage, anything carrying an http scheme goes to the HTTP source,
// everything else is treated as a local directory path.
func Resolve(location string, logger logging.Logger) Source {
	switch {
	case strings.HasPrefix(location, "gs://"):
		return NewGCSSource(location, logger)
	case strings.Contains(location, "http"):
		return NewHTTPSource(location, logger)
	default:
		return NewLocalSource(location, logger)
	}
}

// FetchOne fetches a single file reference, resolving the backend the same
// way Resolve does for batch locations.
func FetchOne(ctx context.Context, ref string, logger logging.Logger) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "gs://"):
		return NewGCSSource(ref, logger).fetchObject(ctx, ref)
	case strings.Contains(ref, "http"):
		return NewHTTPSource(ref, logger).fetchURL(ctx, ref)
	default:
		return readLocalFile(ref)
	}
}
