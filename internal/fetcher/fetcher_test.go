package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher(t *testing.T, timeout time.Duration) *Fetcher {
	t.Helper()
	cfg := config.Default()
	cfg.FetchTimeout = timeout
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(cfg, logger)
}

// assertNoFiles asserts the directory contains no leftover files (partial
// downloads, temp files or lock files).
func assertNoFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		t.Errorf("unexpected leftover file: %s", entry.Name())
	}
}

func TestFetchWritesDestination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("document body"))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "doc.txt")

	f := testFetcher(t, 5*time.Second)
	require.NoError(t, f.Fetch(context.Background(), server.URL, dest, 1024))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "document body", string(data))
}

func TestFetchRejectsAdvertisedOversize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000000")
		_, _ = w.Write(make([]byte, 1000000))
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "big.bin")

	f := testFetcher(t, 5*time.Second)
	err := f.Fetch(context.Background(), server.URL, dest, 100)

	var sizeErr *SizeExceededError
	require.ErrorAs(t, err, &sizeErr)
	assert.Equal(t, int64(100), sizeErr.Limit)
	assertNoFiles(t, dir)
}

func TestFetchEnforcesCeilingMidStream(t *testing.T) {
	// Chunked response with no trustworthy content length
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		chunk := strings.Repeat("x", 1024)
		for range 100 {
			_, _ = io.WriteString(w, chunk)
			flusher.Flush()
		}
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "stream.bin")

	f := testFetcher(t, 5*time.Second)
	err := f.Fetch(context.Background(), server.URL, dest, 4096)

	var sizeErr *SizeExceededError
	require.ErrorAs(t, err, &sizeErr)
	assertNoFiles(t, dir)
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/file", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("redirected content"))
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/file", http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "doc.txt")

	f := testFetcher(t, 5*time.Second)
	require.NoError(t, f.Fetch(context.Background(), server.URL+"/start", dest, 1024))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "redirected content", string(data))
}

func TestFetchSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "doc.txt")

	f := testFetcher(t, 5*time.Second)
	err := f.Fetch(context.Background(), server.URL, dest, 1024)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assertNoFiles(t, dir)
}

func TestFetchTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "doc.txt")

	f := testFetcher(t, 200*time.Millisecond)
	err := f.Fetch(context.Background(), server.URL, dest, 1024)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assertNoFiles(t, dir)
}

func TestFetchCreatesDestinationDirectory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("nested body"))
	}))
	defer server.Close()

	// The destination directory does not exist yet; the fetch must create
	// it before acquiring the download lock
	dest := filepath.Join(t.TempDir(), "cache", "deep", "doc.txt")

	f := testFetcher(t, 5*time.Second)
	require.NoError(t, f.Fetch(context.Background(), server.URL, dest, 1024))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "nested body", string(data))
}

func TestFetchRejectsUnsupportedScheme(t *testing.T) {
	f := testFetcher(t, time.Second)
	err := f.Fetch(context.Background(), "ftp://example.com/file", filepath.Join(t.TempDir(), "f"), 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestFetchSkipsWhenDestinationAppeared(t *testing.T) {
	// If the destination shows up while waiting on the lock (a concurrent
	// download finished), Fetch must not overwrite it
	dir := t.TempDir()
	dest := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0600))

	f := testFetcher(t, time.Second)
	require.NoError(t, f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable", dest, 1024))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "already here", string(data))
}
