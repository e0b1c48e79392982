// Package gcs provides a blob store backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	// Prefix namespaces every object under a key prefix, letting several
	// deployments share one bucket.
	Prefix string
}

// BlobStore writes artifacts to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// PutObject uploads data under the store's prefix and returns a gs:// URI.
// When contentType is empty the object extension decides the stored type.
func (s *BlobStore) PutObject(ctx context.Context, objPath string, contentType string, r io.Reader) (string, error) {
	key, err := objectPath(s.prefix, objPath)
	if err != nil {
		return "", err
	}

	writer := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = resolveContentType(key, contentType)
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return "", fmt.Errorf("upload %q: %w (close writer: %v)", key, err, closeErr)
		}
		return "", fmt.Errorf("upload %q: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize %q: %w", key, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, key), nil
}

// objectPath joins the optional prefix with a relative object path. Absolute
// paths and paths that traverse upward are rejected so a crafted artifact
// name cannot escape the prefix.
func objectPath(prefix, objPath string) (string, error) {
	if strings.TrimSpace(objPath) == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.HasPrefix(objPath, "/") {
		return "", fmt.Errorf("path %q must be relative", objPath)
	}
	cleaned := path.Clean(objPath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path %q escapes the object prefix", objPath)
	}
	if prefix == "" {
		return cleaned, nil
	}
	return prefix + "/" + cleaned, nil
}

func resolveContentType(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
