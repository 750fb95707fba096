// Package paging computes page windows for listing queries.
package paging

import (
	"strconv"
	"strings"

	"backoffice/internal/domain"
)

// DefaultPageSize applies when an entity declares none.
const DefaultPageSize = 10

// PageWindow is the slice of rows a listing fetches.
type PageWindow struct {
	Offset     int
	Limit      int
	Page       int
	TotalPages int
	TotalRows  int
}

// Paginate clamps page into [1, totalPages] and derives the offset. It never
// yields a negative offset; with zero rows it returns page 1, offset 0.
func Paginate(totalRows, page, pageSize int) PageWindow {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if totalRows < 0 {
		totalRows = 0
	}
	totalPages := (totalRows + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	if totalPages == 0 {
		page = 1
	}
	return PageWindow{
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
		Page:       page,
		TotalPages: totalPages,
		TotalRows:  totalRows,
	}
}

// ParsePage reads a raw page number; absent or malformed input means page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Rows returns how many rows the window actually holds.
func (w PageWindow) Rows() int {
	remaining := w.TotalRows - w.Offset
	if remaining <= 0 {
		return 0
	}
	if remaining > w.Limit {
		return w.Limit
	}
	return remaining
}

// Pagination converts the window into the response shape with 1-based
// display bounds.
func (w PageWindow) Pagination() domain.Pagination {
	p := domain.Pagination{
		Page:       w.Page,
		PageSize:   w.Limit,
		Total:      w.TotalRows,
		TotalPages: w.TotalPages,
		Offset:     w.Offset,
	}
	if n := w.Rows(); n > 0 {
		p.FirstRow = w.Offset + 1
		p.LastRow = w.Offset + n
	}
	return p
}
