package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteatlas/siteatlas/internal/crawl"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title> Dashboard </title></head>
<body>
  <a href="/reports">Reports</a>
  <a href="https://other.example.com/away">External</a>
  <a href="mailto:ops@example.com">Mail</a>
  <a href="#top">Top</a>
  <a href="javascript:void(0)">Noop</a>
</body>
</html>`

func TestFetchParsesTitleAndLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, samplePage)
	}))
	defer srv.Close()

	fetcher := New(Config{UserAgent: "siteatlas-test"})
	result, err := fetcher.Fetch(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, "Dashboard", result.Title)
	assert.Equal(t, srv.URL+"/", result.FinalURL)
	assert.Contains(t, string(result.HTML), "<title>")

	require.Len(t, result.Links, 2, "only absolute http(s) links survive")
	assert.Equal(t, crawl.Link{URL: srv.URL + "/reports", Text: "Reports"}, result.Links[0])
	assert.Equal(t, "https://other.example.com/away", result.Links[1].URL)
	assert.Positive(t, result.Duration)
}

func TestFetchSendsIdentityHeaders(t *testing.T) {
	t.Parallel()

	var gotUA, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		fmt.Fprint(w, "<html><head><title>ok</title></head></html>")
	}))
	defer srv.Close()

	fetcher := New(Config{
		UserAgent:    "siteatlas-test",
		ExtraHeaders: map[string]string{"Cookie": "session=abc123"},
	})
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "siteatlas-test", gotUA)
	assert.Equal(t, "session=abc123", gotCookie)
}

func TestFetchReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	fetcher := New(Config{})
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, crawl.ErrSessionLost)
}

func TestFetchClassifiesTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	fetcher := New(Config{Timeout: 50 * time.Millisecond})
	_, err := fetcher.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, crawl.ErrNavigationTimeout)
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	fetcher := New(Config{Timeout: time.Hour})
	_, err := fetcher.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
