package extractor

import (
	"fmt"
	"strconv"
	"strings"
)

// selectorKind discriminates the three page-addressing modes.
type selectorKind int

const (
	selectAll selectorKind = iota
	selectExplicit
	selectRange
)

// PageSelector addresses pages of a paginated document: an explicit ordered
// page list, an inclusive range, or every page.
type PageSelector struct {
	kind       selectorKind
	pages      []int
	start, end int
}

// AllPages selects every page of a document.
func AllPages() PageSelector {
	return PageSelector{kind: selectAll}
}

// Pages selects an explicit list of pages. The caller-given order is
// preserved in the output, even when unsorted.
func Pages(pages ...int) PageSelector {
	return PageSelector{kind: selectExplicit, pages: pages}
}

// PageRange selects the inclusive range [start, end]. Bounds are clamped to
// the document's page count at resolution time.
func PageRange(start, end int) PageSelector {
	return PageSelector{kind: selectRange, start: start, end: end}
}

// ParsePageSelector parses the string form used by the tool parameters:
// "all" or "" for every page, "2-5" for a range, "3,1,7" (or a single "4")
// for an explicit list.
func ParsePageSelector(spec string) (PageSelector, error) {
	spec = strings.TrimSpace(strings.ToLower(spec))
	if spec == "" || spec == "all" {
		return AllPages(), nil
	}

	if !strings.Contains(spec, ",") && strings.Contains(spec, "-") {
		parts := strings.SplitN(spec, "-", 2)
		start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return PageSelector{}, fmt.Errorf("invalid start page: %s", parts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return PageSelector{}, fmt.Errorf("invalid end page: %s", parts[1])
		}
		if start > end {
			return PageSelector{}, fmt.Errorf("invalid page range: %d-%d", start, end)
		}
		return PageRange(start, end), nil
	}

	var pages []int
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		page, err := strconv.Atoi(part)
		if err != nil {
			return PageSelector{}, fmt.Errorf("invalid page number: %s", part)
		}
		if page < 1 {
			return PageSelector{}, fmt.Errorf("page number out of range: %d", page)
		}
		pages = append(pages, page)
	}
	if len(pages) == 0 {
		return AllPages(), nil
	}
	return Pages(pages...), nil
}

// Resolve maps the selector onto a concrete document: the ordered page
// numbers to extract plus the human-readable descriptor. Explicit pages
// outside [1, totalPages] are dropped; ranges are clamped.
func (s PageSelector) Resolve(totalPages int) (pages []int, descriptor string) {
	switch s.kind {
	case selectExplicit:
		for _, page := range s.pages {
			if page >= 1 && page <= totalPages {
				pages = append(pages, page)
			}
		}
		labels := make([]string, len(pages))
		for i, page := range pages {
			labels[i] = strconv.Itoa(page)
		}
		return pages, strings.Join(labels, ",")

	case selectRange:
		start := max(1, s.start)
		end := min(totalPages, s.end)
		for page := start; page <= end; page++ {
			pages = append(pages, page)
		}
		return pages, fmt.Sprintf("%d-%d", start, end)

	default:
		for page := 1; page <= totalPages; page++ {
			pages = append(pages, page)
		}
		return pages, fmt.Sprintf("1-%d", totalPages)
	}
}
