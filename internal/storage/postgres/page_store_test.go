package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteatlas/siteatlas/internal/crawl"
)

func testRecord() crawl.PageRecord {
	return crawl.PageRecord{
		URL:              "https://app.example.com/reports",
		Title:            "Reports",
		HTMLHandle:       "file:///var/siteatlas/pages/reports-abc.html",
		ScreenshotHandle: "file:///var/siteatlas/screenshots/reports-abc.png",
		Depth:            1,
		FetchedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStorePage(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageStoreWithPool(mock, "pages")
	require.NoError(t, err)

	record := testRecord()
	mock.ExpectExec("INSERT INTO pages").
		WithArgs(
			"0195e9b8-0000-7000-8000-000000000001",
			record.URL,
			record.Title,
			record.Depth,
			record.HTMLHandle,
			record.ScreenshotHandle,
			record.FetchedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.StorePage(context.Background(), "0195e9b8-0000-7000-8000-000000000001", record)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorePageWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageStoreWithPool(mock, "crawl_pages")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO crawl_pages").
		WillReturnError(errors.New("connection refused"))

	err = store.StorePage(context.Background(), "run-1", testRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert page")
}

func TestStorePageValidatesInput(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPageStoreWithPool(mock, "")
	require.NoError(t, err)

	assert.Error(t, store.StorePage(context.Background(), "", testRecord()))

	record := testRecord()
	record.URL = ""
	assert.Error(t, store.StorePage(context.Background(), "run-1", record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewPageStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewPageStoreWithPool(mock, "pages; DROP TABLE pages")
	assert.Error(t, err)

	_, err = NewPageStoreWithPool(nil, "pages")
	assert.Error(t, err)
}

func TestNewPageStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewPageStore(context.Background(), PageStoreConfig{})
	assert.Error(t, err)

	_, err = NewPageStore(context.Background(), PageStoreConfig{DSN: "postgres://x", Table: "1bad"})
	assert.Error(t, err)
}
