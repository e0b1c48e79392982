package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/siteatlas/siteatlas/internal/crawl"
	"github.com/siteatlas/siteatlas/internal/hash/sha256"
)

// Persister materializes page artifacts into a BlobStore with object names
// derived from the canonical URL, and writes the run's page index exactly
// once at the end of the run.
type Persister struct {
	store  BlobStore
	hasher *sha256.Hasher
}

// NewPersister builds a Persister over the given store.
func NewPersister(store BlobStore) *Persister {
	return &Persister{store: store, hasher: sha256.New()}
}

// SaveHTML writes the rendered document and returns its URI and size.
func (p *Persister) SaveHTML(ctx context.Context, canonicalURL string, data []byte) (string, int64, error) {
	return p.saveArtifact(ctx, canonicalURL, htmlPrefix, ".html", "text/html; charset=utf-8", data)
}

// SaveScreenshot writes the composited PNG and returns its URI and size.
func (p *Persister) SaveScreenshot(ctx context.Context, canonicalURL string, data []byte) (string, int64, error) {
	return p.saveArtifact(ctx, canonicalURL, screenshotPrefix, ".png", "image/png", data)
}

func (p *Persister) saveArtifact(ctx context.Context, canonicalURL, prefix, ext, contentType string, data []byte) (string, int64, error) {
	digest, err := p.hasher.Hash([]byte(canonicalURL))
	if err != nil {
		return "", 0, fmt.Errorf("digest canonical url: %w", err)
	}
	name, err := objectName(canonicalURL, digest, prefix, ext)
	if err != nil {
		return "", 0, err
	}
	uri, err := p.store.PutObject(ctx, name, contentType, bytes.NewReader(data))
	if err != nil {
		return "", 0, fmt.Errorf("put %s: %w", name, err)
	}
	return uri, int64(len(data)), nil
}

// SaveIndex writes the full page index as one JSON document.
func (p *Persister) SaveIndex(ctx context.Context, records []crawl.PageRecord) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode page index: %w", err)
	}
	uri, err := p.store.PutObject(ctx, indexObjectName, "application/json", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("put %s: %w", indexObjectName, err)
	}
	return uri, nil
}
