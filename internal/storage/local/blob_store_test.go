package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesBaseDir(t *testing.T) {
	t.Parallel()

	base := filepath.Join(t.TempDir(), "artifacts")
	store, err := New(Config{BaseDir: base})
	require.NoError(t, err)
	require.NotNil(t, store)

	info, err := os.Stat(base)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRejectsEmptyBaseDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{BaseDir: "  "})
	assert.Error(t, err)
}

func TestNewRejectsFileAsBaseDir(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New(Config{BaseDir: file})
	assert.Error(t, err)
}

func TestPutObjectWritesFileAndReturnsURI(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	store, err := New(Config{BaseDir: base})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "pages/summary-abc123.html", "text/html", strings.NewReader("<html></html>"))
	require.NoError(t, err)

	wantPath := filepath.Join(base, "pages", "summary-abc123.html")
	assert.Equal(t, "file://"+wantPath, uri)

	content, err := os.ReadFile(wantPath)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(content))
}

func TestPutObjectRejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	for _, path := range []string{"../outside.html", "pages/../../outside.html", ""} {
		_, err := store.PutObject(context.Background(), path, "text/html", strings.NewReader("x"))
		assert.Error(t, err, "path %q", path)
	}
}

func TestPutObjectOverwrites(t *testing.T) {
	t.Parallel()

	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	uri1, err := store.PutObject(ctx, "page_index.json", "application/json", strings.NewReader("[]"))
	require.NoError(t, err)
	uri2, err := store.PutObject(ctx, "page_index.json", "application/json", strings.NewReader(`[{"url":"x"}]`))
	require.NoError(t, err)
	require.Equal(t, uri1, uri2)

	content, err := os.ReadFile(strings.TrimPrefix(uri2, "file://"))
	require.NoError(t, err)
	assert.Equal(t, `[{"url":"x"}]`, string(content))
}
