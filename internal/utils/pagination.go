// Package utils provides small helpers shared by the HTTP and service layers.
// Nothing here knows about documents, users or the gate.
package utils

import "strconv"

// Page bounds for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid int. Whitespace is not trimmed.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ClampPage bounds a 1-based page number and a page size: page below 1
// becomes 1, size below 1 becomes DefaultPageSize and size above
// MaxPageSize is capped.
func ClampPage(page, size int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// ParsePage reads raw page and page_size query values. Unparseable values
// fall back to the defaults before clamping.
func ParsePage(page, size string) (int, int) {
	return ClampPage(AtoiDefault(page, DefaultPage), AtoiDefault(size, DefaultPageSize))
}

// Offset is the number of rows to skip for a clamped page.
func Offset(page, size int) int {
	return (page - 1) * size
}
