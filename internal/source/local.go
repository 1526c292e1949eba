package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"swisscluster/camt-import/internal/logging"
)

// LocalSource reads statement files from a local directory.
type LocalSource struct {
	dir    string
	logger logging.Logger
}

// NewLocalSource creates a source over a local directory path.
func NewLocalSource(dir string, logger logging.Logger) *LocalSource {
	return &LocalSource{dir: dir, logger: logger}
}

// List enumerates regular files in the directory, in directory order.
func (s *LocalSource) List(_ context.Context) ([]FileRef, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", s.dir, err)
	}

	refs := make([]FileRef, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		refs = append(refs, FileRef{
			Name: entry.Name(),
			Path: filepath.Join(s.dir, entry.Name()),
		})
	}

	s.logger.Debug("Listed local directory",
		logging.Field{Key: logging.FieldSource, Value: s.dir},
		logging.Field{Key: logging.FieldCount, Value: len(refs)})
	return refs, nil
}

// Fetch reads one file from disk.
func (s *LocalSource) Fetch(_ context.Context, ref FileRef) ([]byte, error) {
	return readLocalFile(ref.Path)
}

func readLocalFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("cannot read file %s: %w", path, err)
	}
	return data, nil
}
