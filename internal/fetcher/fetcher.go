// Package fetcher streams remote resources to local storage with a hard
// byte ceiling, redirect following and timeout enforcement. It never checks
// whether the destination already exists - caching policy lives in the
// resolver so it stays in one place.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/mcptools/docvault/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// UserAgent identifies the client on requests and redirects
	UserAgent = "docvault-fetch/1.0 (AI Assistant Tool)"

	// MaxRedirects caps redirect chains
	MaxRedirects = 10

	// copyChunkSize is the read granularity for incremental size accounting
	copyChunkSize = 32 * 1024
)

// Fetcher downloads remote files. A single instance is safe for concurrent
// use; simultaneous first-time downloads of the same destination are
// serialised with an advisory file lock and made atomic with a
// download-to-temp-then-rename, so a partially written file is never
// visible at the destination path.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  *logrus.Logger
}

// New creates a Fetcher from the shared configuration.
func New(cfg *config.Config, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("too many redirects")
				}
				// Preserve User-Agent on redirects
				req.Header.Set("User-Agent", UserAgent)
				return nil
			},
		},
		// Allow a burst of 1: downloads are polite, not parallel floods
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		timeout: cfg.FetchTimeout,
		logger:  logger,
	}
}

// Fetch downloads url to destinationPath, enforcing maxBytes both against
// the advertised content length and incrementally while streaming. On any
// failure no file remains at the destination.
func (f *Fetcher) Fetch(ctx context.Context, targetURL, destinationPath string, maxBytes int64) error {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsed.Scheme)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	// The lock file lives next to the destination, so the directory must
	// exist before the lock can be created
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0700); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	// Serialise concurrent first-time downloads of the same destination
	fileLock := flock.New(destinationPath + ".lock")
	if err := fileLock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire download lock: %w", err)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			f.logger.WithError(err).Warn("Failed to release download lock")
		}
		// Removing the lock file lets a later caller lock a fresh inode
		// while an earlier one still holds the old descriptor. The
		// post-lock existence re-check and the atomic rename keep that
		// window from producing a corrupt or duplicate download.
		if err := os.Remove(destinationPath + ".lock"); err != nil && !os.IsNotExist(err) {
			f.logger.WithError(err).Debug("Failed to remove download lock file")
		}
	}()

	// A concurrent download may have completed while we waited on the lock
	if _, err := os.Stat(destinationPath); err == nil {
		f.logger.WithField("path", destinationPath).Debug("Destination appeared while waiting on lock, skipping download")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "*/*")

	f.logger.WithFields(logrus.Fields{
		"url":       targetURL,
		"dest":      destinationPath,
		"max_bytes": maxBytes,
	}).Debug("Starting download")

	resp, err := f.client.Do(req)
	if err != nil {
		return f.classifyTransportError(targetURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.WithError(closeErr).Warn("Failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{URL: targetURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// Pre-flight rejection on the advertised size. Compressed or chunked
	// responses may omit or understate this, so the stream is accounted
	// incrementally as well.
	if resp.ContentLength > maxBytes {
		return &SizeExceededError{URL: targetURL, Limit: maxBytes, Observed: resp.ContentLength}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destinationPath), filepath.Base(destinationPath)+".download_*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	written, copyErr := f.copyBounded(tmpFile, resp.Body, maxBytes)
	closeErr := tmpFile.Close()

	if copyErr != nil || closeErr != nil {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			f.logger.WithError(err).Warn("Failed to remove partial download")
		}
		if copyErr != nil {
			if errors.Is(copyErr, errSizeLimit) {
				return &SizeExceededError{URL: targetURL, Limit: maxBytes, Observed: written}
			}
			return f.classifyTransportError(targetURL, copyErr)
		}
		return fmt.Errorf("failed to finalise download: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destinationPath); err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			f.logger.WithError(rmErr).Warn("Failed to remove temp file after rename failure")
		}
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"url":   targetURL,
		"dest":  destinationPath,
		"bytes": written,
	}).Debug("Download completed")

	return nil
}

// errSizeLimit signals a mid-stream ceiling breach inside copyBounded.
var errSizeLimit = errors.New("size limit exceeded")

// copyBounded copies src to dst, failing with errSizeLimit as soon as more
// than maxBytes have been read.
func (f *Fetcher) copyBounded(dst io.Writer, src io.Reader, maxBytes int64) (int64, error) {
	var written int64
	buf := make([]byte, copyChunkSize)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > maxBytes {
				return written, errSizeLimit
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, fmt.Errorf("failed to write download: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// classifyTransportError maps deadline expiry onto the Timeout error type
// and wraps everything else.
func (f *Fetcher) classifyTransportError(targetURL string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{URL: targetURL, Timeout: f.timeout.String()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TimeoutError{URL: targetURL, Timeout: f.timeout.String()}
	}
	return fmt.Errorf("failed to fetch URL: %w", err)
}
