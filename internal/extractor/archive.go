package extractor

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// extractArchive expands a ZIP into a sibling <base>_extracted/ directory
// and concatenates every contained file with file-name headers, in the
// container's listing order; files present in the directory but not in the
// container follow in sorted order. An existing non-empty extraction
// directory is reused rather than re-expanded, so repeated reads of the
// same archive are cheap.
func (e *Extractor) extractArchive(path string) (*Result, error) {
	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	extractDir := filepath.Join(filepath.Dir(path), baseName+"_extracted")

	if err := e.expandArchive(path, extractDir); err != nil {
		// Transport succeeded but the container is unreadable: degrade
		return e.degraded(path, err), nil
	}

	files, err := e.listExtractedFiles(extractDir)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate extracted files: %w", err)
	}
	files = e.orderByListing(path, extractDir, files)

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Archive %s contains %d file(s)\n", filepath.Base(path), len(files)))

	contained := make([]string, 0, len(files))
	for _, file := range files {
		relName, err := filepath.Rel(extractDir, file)
		if err != nil {
			relName = filepath.Base(file)
		}
		contained = append(contained, relName)

		out.WriteString(fmt.Sprintf("\n===== %s =====\n", relName))
		out.WriteString(e.renderArchiveEntry(file))
		out.WriteString("\n")
	}

	return &Result{
		Text:            out.String(),
		TotalPages:      1,
		PagesDescriptor: "1-1",
		ContainedFiles:  contained,
	}, nil
}

// expandArchive unpacks the ZIP into extractDir unless that directory
// already exists and is non-empty.
func (e *Extractor) expandArchive(path, extractDir string) error {
	if entries, err := os.ReadDir(extractDir); err == nil && len(entries) > 0 {
		e.logger.WithField("dir", extractDir).Debug("Reusing existing extraction directory")
		return nil
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close archive")
		}
	}()

	if err := os.MkdirAll(extractDir, 0700); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	for _, entry := range reader.File {
		if err := e.expandEntry(entry, extractDir); err != nil {
			return err
		}
	}
	return nil
}

// expandEntry writes one archive member under extractDir, rejecting paths
// that would escape it.
func (e *Extractor) expandEntry(entry *zip.File, extractDir string) error {
	dest := filepath.Join(extractDir, entry.Name)
	if !strings.HasPrefix(dest, filepath.Clean(extractDir)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry escapes extraction directory: %s", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(dest, 0700)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", entry.Name, err)
	}

	src, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
	}
	defer func() {
		if err := src.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close archive entry")
		}
	}()

	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return fmt.Errorf("failed to write %s: %w", dest, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to finalise %s: %w", dest, closeErr)
	}
	return nil
}

// listExtractedFiles walks the extraction directory with an explicit
// worklist (no recursion) and returns every regular file in sorted path
// order.
func (e *Extractor) listExtractedFiles(extractDir string) ([]string, error) {
	var files []string
	pending := []string{extractDir}

	for len(pending) > 0 {
		dir := pending[0]
		pending = pending[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
		}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				pending = append(pending, full)
			} else {
				files = append(files, full)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// orderByListing rearranges extracted files into the container's listing
// order, read from the archive's central directory. Files with no
// corresponding archive entry keep their sorted order after the archive's
// own entries. When the archive cannot be re-read the sorted order stands.
func (e *Extractor) orderByListing(archivePath, extractDir string, files []string) []string {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		e.logger.WithError(err).WithField("path", archivePath).Debug("Cannot re-read archive for listing order, keeping sorted order")
		return files
	}
	defer func() {
		if err := reader.Close(); err != nil {
			e.logger.WithError(err).Warn("Failed to close archive")
		}
	}()

	position := make(map[string]int, len(reader.File))
	for i, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		position[filepath.FromSlash(entry.Name)] = i
	}

	type ranked struct {
		pos  int
		path string
	}
	order := make([]ranked, len(files))
	for i, file := range files {
		pos := len(position) + i
		if rel, err := filepath.Rel(extractDir, file); err == nil {
			if p, ok := position[rel]; ok {
				pos = p
			}
		}
		order[i] = ranked{pos: pos, path: file}
	}
	sort.Slice(order, func(i, j int) bool { return order[i].pos < order[j].pos })

	out := make([]string, len(order))
	for i, entry := range order {
		out[i] = entry.path
	}
	return out
}

// renderArchiveEntry produces the text block for one contained file:
// text-like files verbatim (capped per file), PDFs through the full
// paginated path, anything else as an opaque-binary marker.
func (e *Extractor) renderArchiveEntry(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	switch {
	case ext == ".pdf":
		result := e.extractPDF(path, AllPages())
		return result.Text

	case textExtensions[ext]:
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprintf("[failed to read file: %v]", err)
		}
		text := strings.ToValidUTF8(string(data), "�")
		if len(text) > e.cfg.PerFileCharCap {
			truncated := len(text) - e.cfg.PerFileCharCap
			text = text[:e.cfg.PerFileCharCap] + fmt.Sprintf("\n... [truncated %d characters]", truncated)
		}
		return text

	default:
		info, err := os.Stat(path)
		size := int64(0)
		if err == nil {
			size = info.Size()
		}
		e.logger.WithFields(logrus.Fields{
			"path": path,
			"size": size,
		}).Debug("Skipping binary archive entry")
		return fmt.Sprintf("[binary file, %d bytes, content not extracted]", size)
	}
}
