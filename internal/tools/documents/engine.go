// Package documents exposes the retrieval engine as MCP tools:
// download_and_extract fetches a remote document into the cache and returns
// its governed text, and read_document_pages reads page-addressed text from
// a cached (or freshly downloaded) document. Every failure is returned as a
// structured error payload so the protocol boundary never sees an unhandled
// fault.
package documents

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcptools/docvault/internal/config"
	"github.com/mcptools/docvault/internal/extractor"
	"github.com/mcptools/docvault/internal/fetcher"
	"github.com/mcptools/docvault/internal/governor"
	"github.com/mcptools/docvault/internal/resolver"
	"github.com/sirupsen/logrus"
)

// engine bundles the retrieval components behind the two tools. It is
// built once per process from the shared configuration.
type engine struct {
	cfg       *config.Config
	extractor *extractor.Extractor
	resolver  *resolver.Resolver
	governor  *governor.Governor
}

var (
	engineOnce sync.Once
	engineInst *engine
	engineErr  error
)

// getEngine lazily constructs the shared engine. Construction is deferred
// to first use so tool registration never fails on configuration problems.
func getEngine(logger *logrus.Logger) (*engine, error) {
	engineOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			engineErr = fmt.Errorf("failed to load configuration: %w", err)
			return
		}
		if err := cfg.EnsureCacheRoot(); err != nil {
			engineErr = err
			return
		}

		f := fetcher.New(cfg, logger)
		engineInst = &engine{
			cfg:       cfg,
			extractor: extractor.New(cfg, logger),
			resolver:  resolver.New(cfg, f, logger),
			governor:  governor.New(cfg, logger),
		}
	})
	return engineInst, engineErr
}

// maxBytesFromMB converts the tool-level max_size_mb argument to a byte
// ceiling, falling back to the configured default.
func (e *engine) maxBytesFromMB(maxSizeMB float64) int64 {
	if maxSizeMB <= 0 {
		return e.cfg.MaxDownloadBytes
	}
	return int64(maxSizeMB * 1024 * 1024)
}

// newToolResultJSON creates a tool result with indented JSON content.
func newToolResultJSON(data any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// newToolResultError wraps a failure in the uniform error payload shape.
func newToolResultError(err error, context map[string]any) (*mcp.CallToolResult, error) {
	payload := map[string]any{"error": err.Error()}
	for key, value := range context {
		payload[key] = value
	}
	return newToolResultJSON(payload)
}
