package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"swisscluster/camt-import/internal/logging"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSSource reads statement files from a Google Cloud Storage bucket.
// Locators use the gs://bucket/prefix form.
type GCSSource struct {
	bucket string
	prefix string
	logger logging.Logger

	// newClient is swappable in tests.
	newClient func(ctx context.Context) (*storage.Client, error)
}

// NewGCSSource creates a source over a gs:// locator.
func NewGCSSource(location string, logger logging.Logger) *GCSSource {
	bucket, prefix := splitGCSLocator(location)
	return &GCSSource{
		bucket: bucket,
		prefix: prefix,
		logger: logger,
		newClient: func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		},
	}
}

func splitGCSLocator(location string) (bucket, prefix string) {
	trimmed := strings.TrimPrefix(location, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// List enumerates objects under the locator's prefix, in listing order.
func (s *GCSSource) List(ctx context.Context) ([]FileRef, error) {
	client, err := s.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	var refs []FileRef
	it := client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", s.bucket, s.prefix, err)
		}
		if strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		refs = append(refs, FileRef{
			Name: path.Base(attrs.Name),
			Path: fmt.Sprintf("gs://%s/%s", s.bucket, attrs.Name),
		})
	}

	s.logger.Debug("Listed GCS location",
		logging.Field{Key: logging.FieldSource, Value: "gs://" + s.bucket + "/" + s.prefix},
		logging.Field{Key: logging.FieldCount, Value: len(refs)})
	return refs, nil
}

// Fetch downloads one object.
func (s *GCSSource) Fetch(ctx context.Context, ref FileRef) ([]byte, error) {
	return s.fetchObject(ctx, ref.Path)
}

func (s *GCSSource) fetchObject(ctx context.Context, locator string) ([]byte, error) {
	bucket, object := splitGCSLocator(locator)

	client, err := s.newClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", locator, ErrNotFound)
		}
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}
