package downloader

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/baignoire/fitmatch/pkg/errors"
	"github.com/baignoire/fitmatch/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFetcher(t *testing.T, timeout time.Duration, maxBytes int64) *Downloader {
	t.Helper()

	client := httpclient.New(httpclient.Config{
		Timeout:      5 * time.Second,
		MaxRetries:   0,
		RetryWaitMin: 10 * time.Millisecond,
		RetryWaitMax: 20 * time.Millisecond,
	})
	cb := httpclient.NewCircuitBreakerClient(client, httpclient.DefaultCircuitBreakerConfig("feed-test"), testLogger())
	return New(cb, timeout, maxBytes, testLogger())
}

func TestDownloader_Fetch_WritesAtomically(t *testing.T) {
	body := []byte("workbook-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "data", "feed.xlsx")
	d := newFetcher(t, time.Minute, 1<<20)

	n, err := d.Fetch(context.Background(), server.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, got)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "feed.xlsx", entries[0].Name())
}

func TestDownloader_Fetch_ReplacesPreviousFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new-feed"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "feed.xlsx")
	require.NoError(t, os.WriteFile(dest, []byte("old-feed"), 0o644))

	d := newFetcher(t, time.Minute, 1<<20)
	_, err := d.Fetch(context.Background(), server.URL, dest)
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-feed"), got)
}

func TestDownloader_Fetch_RejectsAdvertisedOversize(t *testing.T) {
	// A small body carries an automatic Content-Length, so the advertised
	// size check fires before any byte lands on disk.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "feed.xlsx")
	d := newFetcher(t, time.Minute, 10)

	_, err := d.Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advertised size")
	assert.NoFileExists(t, dest)
}

func TestDownloader_Fetch_RejectsOversizedStream(t *testing.T) {
	// Flushing before the body forces chunked encoding, hiding the length
	// until the stream cap catches it.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write(make([]byte, 64))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "feed.xlsx")
	d := newFetcher(t, time.Minute, 10)

	_, err := d.Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
	assert.NoFileExists(t, dest)

	// The rejected temp file is removed.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDownloader_Fetch_Non200KeepsPreviousFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "feed.xlsx")
	require.NoError(t, os.WriteFile(dest, []byte("old-feed"), 0o644))

	d := newFetcher(t, time.Minute, 1<<20)
	_, err := d.Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status 404")

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []byte("old-feed"), got)
}

func TestDownloader_Fetch_StructuredErrorKeepsSemantics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"export expired"}}`))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "feed.xlsx")
	d := newFetcher(t, time.Minute, 1<<20)

	_, err := d.Fetch(context.Background(), server.URL, dest)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "export expired")
}

func TestDownloader_Fetch_TimesOut(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	dest := filepath.Join(t.TempDir(), "feed.xlsx")
	d := newFetcher(t, 50*time.Millisecond, 1<<20)

	_, err := d.Fetch(context.Background(), server.URL, dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download feed")
	assert.NoFileExists(t, dest)
}
