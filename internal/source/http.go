package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"swisscluster/camt-import/internal/logging"
)

// HTTPSource fetches statement files over HTTP(S). Listing a location
// expects the endpoint to return a JSON array of file URLs (absolute, or
// relative to the listing URL), the convention used by the document store
// the importer talks to.
type HTTPSource struct {
	location string
	client   *http.Client
	logger   logging.Logger
}

// NewHTTPSource creates a source over an HTTP(S) listing endpoint.
func NewHTTPSource(location string, logger logging.Logger) *HTTPSource {
	return &HTTPSource{
		location: location,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
	}
}

// List fetches the location and decodes the JSON array of file URLs.
func (s *HTTPSource) List(ctx context.Context) ([]FileRef, error) {
	body, err := s.fetchURL(ctx, s.location)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", s.location, err)
	}

	var urls []string
	if err := json.Unmarshal(body, &urls); err != nil {
		return nil, fmt.Errorf("listing at %s is not a JSON array of URLs: %w", s.location, err)
	}

	base, err := url.Parse(s.location)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL %s: %w", s.location, err)
	}

	refs := make([]FileRef, 0, len(urls))
	for _, raw := range urls {
		u, err := base.Parse(raw)
		if err != nil {
			s.logger.WithError(err).Warn("Ignoring invalid URL in listing",
				logging.Field{Key: "url", Value: raw})
			continue
		}
		refs = append(refs, FileRef{
			Name: path.Base(u.Path),
			Path: u.String(),
		})
	}

	s.logger.Debug("Listed HTTP location",
		logging.Field{Key: logging.FieldSource, Value: s.location},
		logging.Field{Key: logging.FieldCount, Value: len(refs)})
	return refs, nil
}

// Fetch downloads one file URL.
func (s *HTTPSource) Fetch(ctx context.Context, ref FileRef) ([]byte, error) {
	return s.fetchURL(ctx, ref.Path)
}

func (s *HTTPSource) fetchURL(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %s: %w", rawURL, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", rawURL, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", rawURL, err)
	}
	return data, nil
}
