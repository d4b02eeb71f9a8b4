package documents

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mcptools/docvault/internal/extractor"
	"github.com/mcptools/docvault/internal/registry"
	"github.com/mcptools/docvault/internal/tools"
	"github.com/sirupsen/logrus"
)

// ReadPagesTool implements the read_document_pages MCP tool.
type ReadPagesTool struct{}

// init registers the read-pages tool
func init() {
	registry.Register(&ReadPagesTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ReadPagesTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"read_document_pages",
		mcp.WithDescription(`Reads page-addressed text from a document in the local cache, downloading it first if a URL is given and no cached copy exists.

Provide a filename (for documents already cached, including files inside extracted archives), a URL, or both. Cached files are found by recursive basename search, so members of previously expanded archives are addressable directly.`),
		mcp.WithString("filename",
			mcp.Description("Name of a cached file (e.g. 'annual-2025.pdf'). Searched recursively under the cache root."),
		),
		mcp.WithString("url",
			mcp.Description("Fallback http(s) URL to download from when the filename is not cached"),
		),
		mcp.WithString("pages",
			mcp.Description("Page selection: 'all' (default), a range like '2-5', or a list like '3,1,7'"),
			mcp.DefaultString("all"),
		),
		mcp.WithNumber("max_size_mb",
			mcp.Description("Maximum download size in megabytes if a download is needed (default: 50)"),
			mcp.DefaultNumber(50),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Execute resolves the document from the cache and returns governed text.
func (t *ReadPagesTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing read_document_pages tool")

	filename, _ := args["filename"].(string)
	filename = strings.TrimSpace(filename)
	targetURL, _ := args["url"].(string)
	targetURL = strings.TrimSpace(targetURL)

	if filename == "" && targetURL == "" {
		return nil, fmt.Errorf("at least one of filename or url is required")
	}

	maxSizeMB := 0.0
	if raw, ok := args["max_size_mb"].(float64); ok {
		maxSizeMB = raw
	}

	pagesSpec := "all"
	if raw, ok := args["pages"].(string); ok && raw != "" {
		pagesSpec = raw
	}
	selector, err := extractor.ParsePageSelector(pagesSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	eng, err := getEngine(logger)
	if err != nil {
		return newToolResultError(err, map[string]any{"filename": filename, "url": targetURL})
	}

	file, err := eng.resolver.Resolve(ctx, filename, targetURL, eng.maxBytesFromMB(maxSizeMB))
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"filename": filename,
			"url":      targetURL,
		}).Warn("Document resolution failed")
		return newToolResultError(err, map[string]any{"filename": filename, "url": targetURL})
	}

	result, err := eng.extractor.Extract(file.Path, selector)
	if err != nil {
		return newToolResultError(err, map[string]any{"file": file.Path})
	}

	logger.WithFields(logrus.Fields{
		"file":        file.Path,
		"total_pages": result.TotalPages,
		"pages":       result.PagesDescriptor,
	}).Info("Document pages read")

	governed := eng.governor.Govern(result, nil)
	return newToolResultJSON(governed)
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ReadPagesTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Read specific pages of a cached PDF",
				Arguments: map[string]any{
					"filename": "annual-2025.pdf",
					"pages":    "12-18",
				},
				ExpectedResult: "Text of pages 12-18 with page-number headers; the range is clamped to the document's page count",
			},
			{
				Description: "Read a file extracted from a cached archive",
				Arguments: map[string]any{
					"filename": "balance-sheet.csv",
				},
				ExpectedResult: "Verbatim CSV content found via recursive search inside the archive's extraction directory",
			},
			{
				Description: "Read with a download fallback",
				Arguments: map[string]any{
					"filename": "prospectus.pdf",
					"url":      "https://example.com/docs/prospectus.pdf",
					"pages":    "1-3",
				},
				ExpectedResult: "Uses the cached copy if present, otherwise downloads first, then returns pages 1-3",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "File not found in cache and no URL provided",
				Solution: "The filename has no cached match. Supply the url parameter so the document can be downloaded, or check the filename spelling.",
			},
			{
				Problem:  "Requested pages missing from output",
				Solution: "Explicit page numbers outside the document's page count are dropped; ranges are clamped. Check total_pages in the result.",
			},
		},
		ParameterDetails: map[string]string{
			"filename":    "Basename of a cached file. Matches files nested under per-archive extraction subdirectories.",
			"url":         "Optional download source used only on a genuine cache miss.",
			"pages":       "Page selection for paginated documents. Explicit lists preserve the caller-given order.",
			"max_size_mb": "Byte ceiling for a fallback download, in MB (default 50).",
		},
		WhenToUse:    "Use for follow-up reads of documents already retrieved: specific pages of a PDF, or individual files inside an expanded archive.",
		WhenNotToUse: "Don't use for first-time retrieval when you already know the URL and want the whole document - download_and_extract does that in one step.",
	}
}
