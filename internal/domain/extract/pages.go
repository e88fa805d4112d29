package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParsePageRange expands a page-range expression into an ordered list of
// 1-based page numbers. Accepted forms: "all", "5", "1-3", "2,4,6",
// "1-3,5,7-9". pageCount bounds "all" and rejects out-of-range pages;
// pass 0 to skip the bound check.
func ParsePageRange(expr string, pageCount int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("page range cannot be empty")
	}

	if strings.EqualFold(expr, "all") {
		if pageCount <= 0 {
			return nil, fmt.Errorf("page count required to expand %q", expr)
		}
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}

	seen := make(map[int]bool)
	var pages []int

	add := func(p int) error {
		if p <= 0 {
			return fmt.Errorf("page numbers must be positive, got %d", p)
		}
		if pageCount > 0 && p > pageCount {
			return fmt.Errorf("page %d out of range (document has %d pages)", p, pageCount)
		}
		if !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
		return nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if start, end, ok := strings.Cut(part, "-"); ok {
			lo, err := strconv.Atoi(strings.TrimSpace(start))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			hi, err := strconv.Atoi(strings.TrimSpace(end))
			if err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			if lo > hi {
				return nil, fmt.Errorf("invalid range %q: start after end", part)
			}
			for p := lo; p <= hi; p++ {
				if err := add(p); err != nil {
					return nil, err
				}
			}
			continue
		}

		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number %q", part)
		}
		if err := add(p); err != nil {
			return nil, err
		}
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages in range %q", expr)
	}

	sort.Ints(pages)
	return pages, nil
}
