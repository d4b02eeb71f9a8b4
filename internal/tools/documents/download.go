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

// DownloadTool implements the download_and_extract MCP tool.
type DownloadTool struct{}

// init registers the download tool
func init() {
	registry.Register(&DownloadTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *DownloadTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"download_and_extract",
		mcp.WithDescription(`Downloads a remote document (PDF, ZIP or plain text formats) into the local cache and returns its extracted text.

Files are cached by filename: the same URL is never downloaded twice while the cached file remains on disk. Large results are size-governed - if the extracted text exceeds the response budget it is truncated with an explicit marker.

Supported formats: .pdf, .zip, .txt, .csv, .json, .md, .html, .xml`),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The http(s) URL of the document to download"),
		),
		mcp.WithNumber("max_size_mb",
			mcp.Description("Maximum download size in megabytes (default: 50)"),
			mcp.DefaultNumber(50),
		),
		mcp.WithString("pages",
			mcp.Description("Page selection for paginated documents: 'all' (default), a range like '2-5', or a list like '3,1,7'"),
			mcp.DefaultString("all"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Execute downloads (or reuses) the document and returns governed text.
func (t *DownloadTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	logger.Debug("Executing download_and_extract tool")

	targetURL, ok := args["url"].(string)
	if !ok || strings.TrimSpace(targetURL) == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: url")
	}
	targetURL = strings.TrimSpace(targetURL)

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
		return newToolResultError(err, map[string]any{"url": targetURL})
	}

	file, err := eng.resolver.Resolve(ctx, "", targetURL, eng.maxBytesFromMB(maxSizeMB))
	if err != nil {
		logger.WithError(err).WithField("url", targetURL).Warn("Document retrieval failed")
		return newToolResultError(err, map[string]any{"url": targetURL})
	}

	result, err := eng.extractor.Extract(file.Path, selector)
	if err != nil {
		return newToolResultError(err, map[string]any{
			"url":  targetURL,
			"file": file.Path,
		})
	}

	logger.WithFields(logrus.Fields{
		"url":         targetURL,
		"file":        file.Path,
		"total_pages": result.TotalPages,
		"pages":       result.PagesDescriptor,
	}).Info("Document downloaded and extracted")

	governed := eng.governor.Govern(result, nil)
	return newToolResultJSON(governed)
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *DownloadTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Download an annual report PDF and extract all pages",
				Arguments: map[string]any{
					"url": "https://example.com/reports/annual-2025.pdf",
				},
				ExpectedResult: "Extracted text of every page with page-number headers, cached locally for later page-addressed reads",
			},
			{
				Description: "Download a data archive and list its contents",
				Arguments: map[string]any{
					"url": "https://example.com/data/filings.zip",
				},
				ExpectedResult: "Concatenated text of all contained files with file-name headers; binary members are listed but not read",
			},
			{
				Description: "Download a large document with a raised size limit",
				Arguments: map[string]any{
					"url":         "https://example.com/archive/prospectus.pdf",
					"max_size_mb": 120,
				},
				ExpectedResult: "Document downloads despite exceeding the default 50MB ceiling",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Download exceeds size limit error",
				Solution: "Raise max_size_mb, or pick a smaller source. The ceiling is enforced both before and during the transfer.",
			},
			{
				Problem:  "Extracted text is a diagnostic message instead of content",
				Solution: "The file downloaded fine but its content could not be parsed (corrupt or scanned PDF). Extraction degrades rather than failing so batch workflows continue.",
			},
			{
				Problem:  "Response replaced by schema/sample metadata",
				Solution: "The result was too large to return whole. Follow the advisory's recommended filters, or read specific pages with read_document_pages.",
			},
		},
		ParameterDetails: map[string]string{
			"url":         "Complete http(s) URL. The cache filename is derived from the URL path's basename.",
			"max_size_mb": "Per-download byte ceiling in MB (default 50). Applies to the advertised content length and to the actual stream.",
			"pages":       "Only meaningful for paginated documents. '2-5' clamps to the document's page count; '3,1,7' preserves the given order.",
		},
		WhenToUse:    "Use to pull remote reports, filings or data archives into the local cache and read their text in one step.",
		WhenNotToUse: "Don't use for documents already in the cache (use read_document_pages) or for web pages that need HTML rendering.",
	}
}
