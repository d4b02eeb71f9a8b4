package extractor

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip builds a test archive from name -> content pairs.
func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestExtractArchiveMixedEntries(t *testing.T) {
	e := testExtractor(t)
	dir := t.TempDir()

	archivePath := filepath.Join(dir, "bundle.zip")
	writeZip(t, archivePath, map[string][]byte{
		"a.txt": []byte("plain text payload"),
		"b.pdf": []byte("not really a pdf"),
		"c.bin": {0x00, 0x01, 0x02, 0x03},
	})

	result, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)

	assert.Contains(t, result.Text, "3 file(s)")
	assert.Contains(t, result.Text, "===== a.txt =====")
	assert.Contains(t, result.Text, "===== b.pdf =====")
	assert.Contains(t, result.Text, "===== c.bin =====")

	// Text entry included verbatim
	assert.Contains(t, result.Text, "plain text payload")
	// Corrupt PDF entry degrades to a diagnostic rather than failing
	assert.Contains(t, result.Text, "b.pdf")
	// Binary entry is listed but not read
	assert.Contains(t, result.Text, "binary file, 4 bytes")

	assert.ElementsMatch(t, []string{"a.txt", "b.pdf", "c.bin"}, result.ContainedFiles)
}

func TestExtractArchiveWalksNestedDirectories(t *testing.T) {
	e := testExtractor(t)
	dir := t.TempDir()

	archivePath := filepath.Join(dir, "nested.zip")
	writeZip(t, archivePath, map[string][]byte{
		"top.txt":             []byte("top level"),
		"sub/inner.txt":       []byte("one level down"),
		"sub/deeper/leaf.txt": []byte("two levels down"),
	})

	result, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)

	assert.Contains(t, result.Text, "top level")
	assert.Contains(t, result.Text, "one level down")
	assert.Contains(t, result.Text, "two levels down")
	assert.Contains(t, result.ContainedFiles, filepath.Join("sub", "deeper", "leaf.txt"))
}

func TestExtractArchiveReusesExtractionDirectory(t *testing.T) {
	e := testExtractor(t)
	dir := t.TempDir()

	archivePath := filepath.Join(dir, "cached.zip")
	writeZip(t, archivePath, map[string][]byte{
		"a.txt": []byte("original"),
	})

	_, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)

	// Plant a sentinel in the extraction directory; a re-extract that
	// reuses the directory will pick it up instead of re-expanding
	extractDir := filepath.Join(dir, "cached_extracted")
	require.NoError(t, os.WriteFile(filepath.Join(extractDir, "sentinel.txt"), []byte("sentinel content"), 0600))

	result, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)
	assert.Contains(t, result.Text, "sentinel content")
	assert.Contains(t, result.Text, "2 file(s)")
}

func TestExtractArchiveCapsTextEntries(t *testing.T) {
	cfg := config.Default()
	cfg.CacheRoot = t.TempDir()
	cfg.PerFileCharCap = 10
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	e := New(cfg, logger)

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "big.zip")
	writeZip(t, archivePath, map[string][]byte{
		"big.txt": []byte("0123456789ABCDEF"),
	})

	result, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)
	assert.Contains(t, result.Text, "0123456789")
	assert.NotContains(t, result.Text, "ABCDEF")
	assert.Contains(t, result.Text, "[truncated 6 characters]")
}

func TestExtractArchivePreservesListingOrder(t *testing.T) {
	e := testExtractor(t)
	dir := t.TempDir()

	// Entries written in deliberately non-alphabetical order
	archivePath := filepath.Join(dir, "ordered.zip")
	f, err := os.Create(archivePath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for _, entry := range []struct{ name, content string }{
		{name: "zebra.txt", content: "listed first"},
		{name: "alpha.txt", content: "listed second"},
		{name: "middle.txt", content: "listed third"},
	} {
		zw, err := w.Create(entry.name)
		require.NoError(t, err)
		_, err = zw.Write([]byte(entry.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	result, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra.txt", "alpha.txt", "middle.txt"}, result.ContainedFiles)

	zebra := strings.Index(result.Text, "===== zebra.txt =====")
	alpha := strings.Index(result.Text, "===== alpha.txt =====")
	middle := strings.Index(result.Text, "===== middle.txt =====")
	assert.Less(t, zebra, alpha)
	assert.Less(t, alpha, middle)

	// A file planted in the extraction directory afterwards has no archive
	// position and follows the container's own entries
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ordered_extracted", "aaa-extra.txt"), []byte("foreign"), 0600))

	result, err = e.Extract(archivePath, AllPages())
	require.NoError(t, err)
	assert.Equal(t, []string{"zebra.txt", "alpha.txt", "middle.txt", "aaa-extra.txt"}, result.ContainedFiles)
}

func TestExtractCorruptArchiveDegrades(t *testing.T) {
	e := testExtractor(t)
	dir := t.TempDir()

	archivePath := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("this is not a zip"), 0600))

	result, err := e.Extract(archivePath, AllPages())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalPages)
	assert.Equal(t, "error", result.PagesDescriptor)
}
