// Package resolver maps a filename and/or URL onto a concrete cached file.
// It prefers an existing file (direct path, or found by recursive basename
// search under the cache root) over downloading, which is the subsystem's
// core cost-avoidance guarantee: the same URL or filename is never fetched
// twice while the cached file persists on disk.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
)

// defaultBasename is used when a URL path yields no filename.
const defaultBasename = "document"

// NotFoundError is returned when no cached file matches and no URL was
// supplied to download from.
type NotFoundError struct {
	Filename string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in cache and no URL provided to download it from", e.Filename)
}

// CachedFile describes a resolved file on local storage. It is re-derived
// from the filesystem on every call, never held across calls.
type CachedFile struct {
	Path      string
	SizeBytes int64
	Extension string
}

// Downloader is the part of the fetcher the resolver needs. The fetcher has
// no existence check of its own; the resolver decides when downloading is
// necessary.
type Downloader interface {
	Fetch(ctx context.Context, url, destinationPath string, maxBytes int64) error
}

// Resolver locates cached files, downloading on a genuine miss.
type Resolver struct {
	cfg     *config.Config
	fetcher Downloader
	logger  *logrus.Logger
}

// New creates a Resolver from the shared configuration.
func New(cfg *config.Config, fetcher Downloader, logger *logrus.Logger) *Resolver {
	return &Resolver{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Resolve finds the local file for the given filename and/or URL. At least
// one of the two must be non-empty. maxBytes caps any download that turns
// out to be necessary.
func (r *Resolver) Resolve(ctx context.Context, filename, targetURL string, maxBytes int64) (*CachedFile, error) {
	if filename == "" && targetURL == "" {
		return nil, fmt.Errorf("either a filename or a URL is required")
	}

	if filename == "" {
		filename = basenameFromURL(targetURL)
	}

	directPath := filepath.Join(r.cfg.CacheRoot, filename)
	if file, err := r.statFile(directPath); err == nil {
		r.logger.WithField("path", directPath).Debug("Cache hit (direct path)")
		return file, nil
	}

	// The file may live inside a per-archive extraction subdirectory
	if found, err := r.searchByBasename(filepath.Base(filename)); err != nil {
		return nil, err
	} else if found != "" {
		r.logger.WithField("path", found).Debug("Cache hit (recursive search)")
		return r.statFile(found)
	}

	if targetURL == "" {
		return nil, &NotFoundError{Filename: filename}
	}

	r.logger.WithFields(logrus.Fields{
		"url":  targetURL,
		"dest": directPath,
	}).Debug("Cache miss, downloading")

	if err := r.fetcher.Fetch(ctx, targetURL, directPath, maxBytes); err != nil {
		return nil, err
	}
	return r.statFile(directPath)
}

// searchByBasename walks the cache root with an explicit worklist of
// pending directories and returns the first file whose basename matches.
func (r *Resolver) searchByBasename(basename string) (string, error) {
	pending := []string{r.cfg.CacheRoot}

	for len(pending) > 0 {
		dir := pending[0]
		pending = pending[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to search cache directory %s: %w", dir, err)
		}

		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				pending = append(pending, full)
				continue
			}
			if entry.Name() == basename {
				return full, nil
			}
		}
	}
	return "", nil
}

// statFile builds a CachedFile from the filesystem.
func (r *Resolver) statFile(path string) (*CachedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	return &CachedFile{
		Path:      path,
		SizeBytes: info.Size(),
		Extension: strings.ToLower(filepath.Ext(path)),
	}, nil
}

// basenameFromURL derives a cache filename from the URL's path basename.
func basenameFromURL(targetURL string) string {
	parsed, err := url.Parse(targetURL)
	if err != nil || parsed.Path == "" {
		return defaultBasename
	}
	base := filepath.Base(parsed.Path)
	if base == "" || base == "." || base == "/" {
		return defaultBasename
	}
	return base
}
