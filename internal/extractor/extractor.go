// Package extractor turns cached local files into bounded, page-addressable
// UTF-8 text. PDFs extract per-page via pdfcpu, ZIP archives expand into a
// sibling directory and concatenate their entries, and text-like formats
// pass through verbatim. Content-level parse failures produce a degraded
// result rather than an error so one bad file never blocks a batch caller.
package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
)

// textExtensions are the formats included verbatim.
var textExtensions = map[string]bool{
	".txt":  true,
	".csv":  true,
	".json": true,
	".md":   true,
	".html": true,
	".htm":  true,
	".xml":  true,
}

// SupportedExtensions lists every extension Extract accepts, for error
// messages and tool descriptions.
func SupportedExtensions() []string {
	exts := []string{".pdf", ".zip"}
	for ext := range textExtensions {
		exts = append(exts, ext)
	}
	return exts
}

// UnsupportedTypeError is returned for a file extension outside the
// recognised set.
type UnsupportedTypeError struct {
	Path      string
	Extension string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q for %s (supported: .pdf, .zip, .txt, .csv, .json, .md, .html, .xml)",
		e.Extension, filepath.Base(e.Path))
}

// Result is the outcome of extracting one file. A degraded result (parse
// failure downgraded to diagnostics) has TotalPages 0 and PagesDescriptor
// "error".
type Result struct {
	Text            string   `json:"text"`
	TotalPages      int      `json:"total_pages"`
	PagesDescriptor string   `json:"extracted_pages"`
	ContainedFiles  []string `json:"contained_files,omitempty"`
}

// Extractor converts local files to text.
type Extractor struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// New creates an Extractor from the shared configuration.
func New(cfg *config.Config, logger *logrus.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract dispatches on the file extension. The page selector only applies
// to paginated documents; other formats ignore it.
func (e *Extractor) Extract(path string, sel PageSelector) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("file not accessible: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return e.extractPDF(path, sel), nil
	case ext == ".zip":
		return e.extractArchive(path)
	case textExtensions[ext]:
		return e.extractText(path)
	default:
		return nil, &UnsupportedTypeError{Path: path, Extension: ext}
	}
}

// extractText reads a text-like file verbatim. Size bounding happens
// downstream in the governor.
func (e *Extractor) extractText(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text := strings.ToValidUTF8(string(data), "�")
	return &Result{
		Text:            text,
		TotalPages:      1,
		PagesDescriptor: "1-1",
	}, nil
}

// degraded builds the diagnostic result used when content-level parsing
// fails after the transport level succeeded.
func (e *Extractor) degraded(path string, cause error) *Result {
	e.logger.WithError(cause).WithField("path", path).Warn("Content extraction failed, returning degraded result")
	return &Result{
		Text:            fmt.Sprintf("Error extracting content from %s: %v", filepath.Base(path), cause),
		TotalPages:      0,
		PagesDescriptor: "error",
	}
}
