// Package storage persists crawl artifacts behind a pluggable blob store.
// The crawl core sees opaque URIs; the backend (filesystem, GCS, memory) is
// chosen by configuration.
package storage

import (
	"context"
	"fmt"
	"io"
)

// BlobStore abstracts object storage. Implementations return a stable URI
// for the written object (file://, gs://, memory://).
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// NoOpStore discards writes. Useful for dry runs where pages are fetched and
// counted but nothing is kept.
type NoOpStore struct{}

// PutObject drops the data and returns a noop:// URI.
func (NoOpStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, data); err != nil {
		return "", fmt.Errorf("discard object data: %w", err)
	}
	return fmt.Sprintf("noop://%s", path), nil
}
