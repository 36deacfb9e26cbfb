package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	domain "github.com/shutterbay/api/internal/domain"
)

const (
	// DefaultPageSize is used when the client omits pageSize.
	DefaultPageSize = 10
	// DefaultMaxPageSize caps pageSize to prevent unbounded reads.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPage     = errors.New("pagination: invalid page")
	ErrInvalidPageSize = errors.New("pagination: invalid pageSize")
)

// Options control how Parse behaves for a given handler.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Parse reads the 1-based page and pageSize query parameters.
func Parse(values url.Values, opts Options) (domain.Page, error) {
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	size := opts.DefaultPageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, maxSize)

	page := domain.Page{Number: 1, Size: size}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return domain.Page{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidPage)
		}
		page.Number = n
	}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return domain.Page{}, fmt.Errorf("%w: must be a positive integer", ErrInvalidPageSize)
		}
		page.Size = min(n, maxSize)
	}
	return page, nil
}

// Pages returns the number of pages needed for total items. An empty result still has one page.
func Pages(total, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return (total-1)/size + 1
}

// Apply slices items to the requested page and reports the totals.
func Apply[T any](items []T, page domain.Page) domain.PageResult[T] {
	if page.Size <= 0 {
		page.Size = DefaultPageSize
	}
	if page.Number <= 0 {
		page.Number = 1
	}
	total := len(items)
	start := total
	if page.Number-1 < Pages(total, page.Size) {
		start = min((page.Number-1)*page.Size, total)
	}
	end := start + min(page.Size, total-start)
	return domain.PageResult[T]{
		Items: items[start:end],
		Page:  page.Number,
		Pages: Pages(total, page.Size),
		Total: total,
	}
}
