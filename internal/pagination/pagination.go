// Package pagination slices ordered result sets into fixed-size, 1-based pages.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source is an ordered result set that can count and slice itself.
type Source[T any] interface {
	Count(ctx context.Context) (int64, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Page is one page of a Source together with its position in the whole.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Total    int64
	PerPage  int
}

func (p *Page[T]) HasNext() bool     { return p.Number < p.NumPages }
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }
func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}
func (p *Page[T]) NextNumber() int     { return p.Number + 1 }
func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

// StartIndex is the 1-based index of the first item on the page, 0 when the page is empty.
func (p *Page[T]) StartIndex() int64 {
	if p.Total == 0 {
		return 0
	}
	return int64(p.PerPage)*int64(p.Number-1) + 1
}

// ParseNumber reads a raw `page` value. ok is false when raw is not an integer.
// Integers too large for int come back as math.MaxInt.
func ParseNumber(raw string) (n int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		if n < 0 {
			return n, true
		}
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// NumPages returns how many pages total items occupy. An empty set still has one (empty) page.
func NumPages(total int64, perPage int) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// Paginate fetches the requested page of src. A missing or non-integer page means
// page 1; an integer outside 1..NumPages serves the last page.
func Paginate[T any](ctx context.Context, src Source[T], rawPage string, perPage int) (*Page[T], error) {
	if perPage < 1 {
		return nil, fmt.Errorf("pagination: page size must be positive, got %d", perPage)
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	numPages := NumPages(total, perPage)
	number, ok := ParseNumber(rawPage)
	switch {
	case !ok:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	page := &Page[T]{
		Number:   number,
		NumPages: numPages,
		Total:    total,
		PerPage:  perPage,
	}
	if total == 0 {
		page.Items = []T{}
		return page, nil
	}

	items, err := src.Slice(ctx, (number-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", number, err)
	}
	page.Items = items
	return page, nil
}

// SliceSource serves an in-memory slice as a Source.
type SliceSource[T any] []T

func (s SliceSource[T]) Count(context.Context) (int64, error) { return int64(len(s)), nil }

func (s SliceSource[T]) Slice(_ context.Context, offset, limit int) ([]T, error) {
	if offset >= len(s) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(s) {
		end = len(s)
	}
	return s[offset:end], nil
}
