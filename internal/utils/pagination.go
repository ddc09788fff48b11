package utils

import "strconv"

// Pagination defaults
const (
	DefaultPage     = 1   // Default page number
	DefaultPageSize = 10  // Default page size
	MaxPageSize     = 100 // Upper bound for page size
)

// Page is a validated page request
type Page struct {
	Number int `json:"page"`      // 1-based page number
	Size   int `json:"page_size"` // Items per page
}

// ParsePage reads page and page_size query values, falling back to defaults on bad input
func ParsePage(page, pageSize string) Page {
	p := Page{Number: DefaultPage, Size: DefaultPageSize}
	if v, err := strconv.Atoi(page); err == nil && v > 0 {
		p.Number = v // Set page if valid
	}
	// Page size must stay within limits
	if v, err := strconv.Atoi(pageSize); err == nil && v > 0 && v <= MaxPageSize {
		p.Size = v // Set page size if valid
	}
	return p
}

// Offset is the number of rows to skip
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages is the number of pages needed for total rows
func (p Page) TotalPages(total int64) int {
	if p.Size <= 0 {
		return 0
	}
	return (int(total) + p.Size - 1) / p.Size
}
