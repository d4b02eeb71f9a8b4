package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sirupsen/logrus"
)

// extractPDF parses a PDF into per-page text blocks and renders the pages
// the selector resolves to, each under a page-number header separated by
// blank lines. A document that cannot be parsed at all yields a degraded
// result instead of an error.
func (e *Extractor) extractPDF(path string, sel PageSelector) *Result {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return e.degraded(path, fmt.Errorf("failed to read page count: %w", err))
	}
	if pageCount < 1 {
		return e.degraded(path, fmt.Errorf("document reports no pages"))
	}

	pages, descriptor := sel.Resolve(pageCount)

	var out strings.Builder
	for i, pageNum := range pages {
		if i > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(fmt.Sprintf("--- Page %d ---\n", pageNum))

		pageText, err := e.extractPDFPage(path, pageNum, conf)
		if err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"path": path,
				"page": pageNum,
			}).Warn("Failed to extract page content")
			out.WriteString(fmt.Sprintf("[content extraction failed: %v]", err))
			continue
		}
		out.WriteString(pageText)
	}

	return &Result{
		Text:            out.String(),
		TotalPages:      pageCount,
		PagesDescriptor: descriptor,
	}
}

// extractPDFPage extracts the raw content stream of one page into a temp
// directory and reduces it to readable text.
func (e *Extractor) extractPDFPage(path string, pageNum int, conf *model.Configuration) (string, error) {
	tempDir, err := os.MkdirTemp("", "docvault_pdf_*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			e.logger.WithError(err).Warn("Failed to clean up temp directory")
		}
	}()

	selection := []string{strconv.Itoa(pageNum)}
	if err := api.ExtractContentFile(path, tempDir, selection, conf); err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	contentFile := filepath.Join(tempDir, fmt.Sprintf("%s_Content_page_%d.txt", baseName, pageNum))
	content, err := os.ReadFile(contentFile)
	if err != nil {
		return "", fmt.Errorf("failed to read content file: %w", err)
	}

	text := renderContentStream(string(content))
	if strings.TrimSpace(text) == "" {
		return "[no text content found on this page]", nil
	}
	return text, nil
}

// renderContentStream pulls the text-show operations out of a raw PDF
// content stream and cleans the result up for reading.
func renderContentStream(content string) string {
	var texts []string
	for line := range strings.SplitSeq(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		// Text show operations: Tj, TJ, ', "
		if strings.Contains(line, " Tj") || strings.Contains(line, " TJ") ||
			strings.Contains(line, "' ") || strings.Contains(line, "\" ") {
			texts = append(texts, literalStrings(line)...)
		}
	}

	if len(texts) == 0 {
		return readableLines(content)
	}
	return cleanupText(strings.Join(texts, " "))
}

// literalStrings extracts the parenthesised string literals from one PDF
// operation line, unescaping the common sequences.
func literalStrings(operation string) []string {
	var texts []string
	inText := false
	start := -1

	for i, char := range operation {
		if char == '(' && (i == 0 || operation[i-1] != '\\') {
			inText = true
			start = i + 1
		} else if char == ')' && inText && (i == 0 || operation[i-1] != '\\') {
			if start != -1 && start < i {
				text := operation[start:i]
				text = strings.ReplaceAll(text, "\\(", "(")
				text = strings.ReplaceAll(text, "\\)", ")")
				text = strings.ReplaceAll(text, "\\\\", "\\")
				text = strings.ReplaceAll(text, "\\n", "\n")
				text = strings.ReplaceAll(text, "\\t", "\t")
				if strings.TrimSpace(text) != "" {
					texts = append(texts, text)
				}
			}
			inText = false
			start = -1
		}
	}
	return texts
}

// pdfOperators is used to skip obvious command lines when no text-show
// operations were found and we fall back to scanning for readable lines.
var pdfOperators = []string{
	"BT", "ET", "Tf", "Td", "TD", "Tm", "T*", "Tj", "TJ",
	"q", "Q", "cm", "gs", "re", "W", "n", "f", "S", "s",
	"BMC", "BDC", "EMC", "cs", "CS", "scn", "SCN", "rg", "RG", "g", "G",
}

// readableLines salvages any mostly-alphabetic lines from a content stream
// that yielded no text operations.
func readableLines(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isOperatorLine(line) {
			continue
		}
		alpha := 0
		for _, char := range line {
			if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') {
				alpha++
			}
		}
		if len(line) >= 2 && float64(alpha)/float64(len(line)) >= 0.3 {
			lines = append(lines, line)
		}
	}
	return cleanupText(strings.Join(lines, " "))
}

// isOperatorLine reports whether a line looks like a PDF drawing command
// rather than content: it ends in a known operator or is mostly numeric.
func isOperatorLine(line string) bool {
	words := strings.Fields(line)
	if len(words) == 0 {
		return false
	}
	if slices.Contains(pdfOperators, words[len(words)-1]) {
		return true
	}

	nonNumeric := 0
	for _, word := range words {
		if _, err := strconv.ParseFloat(word, 64); err != nil {
			nonNumeric++
		}
	}
	return float64(nonNumeric)/float64(len(words)) < 0.3
}

// octalReplacements maps the octal escapes that commonly appear in PDF
// literals to their characters.
var octalReplacements = map[string]string{
	"\\037": "",
	"\\260": "°",
	"\\256": "®",
	"\\251": "©",
	"\\226": "–",
	"\\227": "—",
	"\\240": " ",
	"\\012": "\n",
	"\\011": "\t",
}

// cleanupText normalises whitespace and strips escape artefacts and
// control characters from extracted text.
func cleanupText(text string) string {
	text = strings.TrimSpace(text)

	for octal, replacement := range octalReplacements {
		text = strings.ReplaceAll(text, octal, replacement)
	}

	// Drop any remaining 3-digit octal escapes
	var cleaned strings.Builder
	i := 0
	for i < len(text) {
		if i+3 < len(text) && text[i] == '\\' &&
			text[i+1] >= '0' && text[i+1] <= '7' &&
			text[i+2] >= '0' && text[i+2] <= '7' &&
			text[i+3] >= '0' && text[i+3] <= '7' {
			i += 4
			continue
		}
		cleaned.WriteByte(text[i])
		i++
	}
	text = cleaned.String()

	// Replace control characters with spaces, drop other non-printables
	var printable strings.Builder
	for _, char := range text {
		switch {
		case char == '\n' || char == '\r' || char == '\t':
			printable.WriteRune(char)
		case char >= 32:
			printable.WriteRune(char)
		default:
			printable.WriteRune(' ')
		}
	}
	text = printable.String()

	for strings.Contains(text, "  ") {
		text = strings.ReplaceAll(text, "  ", " ")
	}
	return text
}
