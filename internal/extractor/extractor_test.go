package extractor

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg := config.Default()
	cfg.CacheRoot = t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(cfg, logger)
}

func TestExtractTextFileVerbatim(t *testing.T) {
	e := testExtractor(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "line one\nline two\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	result, err := e.Extract(path, AllPages())
	require.NoError(t, err)
	assert.Equal(t, content, result.Text)
	assert.Equal(t, 1, result.TotalPages)
	assert.Equal(t, "1-1", result.PagesDescriptor)
	assert.Empty(t, result.ContainedFiles)
}

func TestExtractCSVAndJSONAreTextLike(t *testing.T) {
	e := testExtractor(t)
	dir := t.TempDir()

	for _, name := range []string{"data.csv", "data.json", "data.md", "data.xml", "data.html"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("content of "+name), 0600))

		result, err := e.Extract(path, AllPages())
		require.NoError(t, err, name)
		assert.Equal(t, "content of "+name, result.Text)
	}
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := testExtractor(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "program.exe")
	require.NoError(t, os.WriteFile(path, []byte{0x4d, 0x5a}, 0600))

	_, err := e.Extract(path, AllPages())
	require.Error(t, err)

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ".exe", unsupported.Extension)
	assert.Contains(t, err.Error(), ".pdf")
	assert.Contains(t, err.Error(), ".zip")
}

func TestExtractMissingFile(t *testing.T) {
	e := testExtractor(t)

	_, err := e.Extract(filepath.Join(t.TempDir(), "absent.txt"), AllPages())
	require.Error(t, err)
}

func TestExtractCorruptPDFDegrades(t *testing.T) {
	e := testExtractor(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0600))

	result, err := e.Extract(path, AllPages())
	require.NoError(t, err, "content-level parse failures must degrade, not fail")
	assert.Equal(t, 0, result.TotalPages)
	assert.Equal(t, "error", result.PagesDescriptor)
	assert.Contains(t, result.Text, "broken.pdf")
}
