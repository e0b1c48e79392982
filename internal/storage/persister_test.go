package storage

import (
	"context"
	stdsha "crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteatlas/siteatlas/internal/crawl"
	"github.com/siteatlas/siteatlas/internal/storage/memory"
)

func digestPrefix(canonicalURL string) string {
	sum := stdsha.Sum256([]byte(canonicalURL))
	return hex.EncodeToString(sum[:])[:digestLen]
}

func TestPersisterSaveHTML(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	persister := NewPersister(store)

	const pageURL = "https://app.example.com/reports/summary"
	uri, size, err := persister.SaveHTML(context.Background(), pageURL, []byte("<html>hi</html>"))
	require.NoError(t, err)

	wantName := "pages/summary-" + digestPrefix(pageURL) + ".html"
	assert.Equal(t, "memory://"+wantName, uri)
	assert.Equal(t, int64(15), size)

	content, ok := store.Object(wantName)
	require.True(t, ok)
	assert.Equal(t, "<html>hi</html>", string(content))
}

func TestPersisterSaveScreenshot(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	persister := NewPersister(store)

	const pageURL = "https://app.example.com/"
	uri, size, err := persister.SaveScreenshot(context.Background(), pageURL, []byte{0x89, 0x50})
	require.NoError(t, err)

	assert.Equal(t, "memory://screenshots/index-"+digestPrefix(pageURL)+".png", uri)
	assert.Equal(t, int64(2), size)
}

func TestPersisterNamesAreStableAndDistinct(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	persister := NewPersister(store)
	ctx := context.Background()

	uriA1, _, err := persister.SaveHTML(ctx, "https://app.example.com/a", []byte("a"))
	require.NoError(t, err)
	uriA2, _, err := persister.SaveHTML(ctx, "https://app.example.com/a", []byte("a again"))
	require.NoError(t, err)
	uriB, _, err := persister.SaveHTML(ctx, "https://app.example.com/b", []byte("b"))
	require.NoError(t, err)

	assert.Equal(t, uriA1, uriA2, "same canonical URL must map to the same object")
	assert.NotEqual(t, uriA1, uriB)
	// The rewrite replaced the first object instead of adding a third.
	assert.Equal(t, 2, store.Len())
}

func TestPersisterSaveIndex(t *testing.T) {
	t.Parallel()

	store := memory.NewBlobStore()
	persister := NewPersister(store)

	records := []crawl.PageRecord{
		{
			URL:        "https://app.example.com/",
			Title:      "Home",
			HTMLHandle: "memory://pages/index-abc.html",
			Depth:      0,
			FetchedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	uri, err := persister.SaveIndex(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, "memory://page_index.json", uri)

	content, ok := store.Object("page_index.json")
	require.True(t, ok)

	var decoded []crawl.PageRecord
	require.NoError(t, json.Unmarshal(content, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, records[0], decoded[0])
	// Empty screenshot handles are omitted from the document.
	assert.NotContains(t, string(content), "screenshot_path")
}

func TestNoOpStore(t *testing.T) {
	t.Parallel()

	uri, err := NoOpStore{}.PutObject(context.Background(), "pages/x.html", "text/html", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "noop://pages/x.html", uri)
}
