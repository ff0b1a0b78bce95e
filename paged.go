package txpager

import (
	"github.com/samber/lo"
)

// Pagination holds the offsets of the neighbouring pages. A nil field means
// there is no such page. Note that Prev may point at offset 0: that is a real
// page, not the absence of one.
type Pagination struct {
	Prev *int `json:"prev,omitempty"`
	Next *int `json:"next,omitempty"`
}

// Paged is a page of rows along with its navigation.
type Paged[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Paginate builds the result for rows fetched with the page's DatasetLimit
// starting at the page's Offset.
//
// For a bounded page of size N the query is expected to fetch N+1 rows. When
// it returns more than N rows the last one is dropped: it only tells that a
// next page exists and is never returned to the client. A first page
// (Offset 0) never has Prev.
//
// An AllRows page returns rows as is, never has Next and has Prev = 0 when
// the offset is positive.
//
// rows is not modified.
func Paginate[T any](rows []T, page Page) Paged[T] {
	size, bounded := page.size.Value()
	if !bounded {
		return Paged[T]{
			Data: rows,
			Pagination: Pagination{
				Prev: lo.Ternary[*int](page.offset > 0, lo.ToPtr(0), nil),
			},
		}
	}

	prev := lo.Ternary(page.offset > size, page.offset-size, 0)
	next := page.offset + size
	// The next page has to be a valid Page of the same size too.
	hasNext := !IsLastPage(rows, page) && next <= maxOffsetFor(size)

	return Paged[T]{
		Data: TrimResultSet(rows, page),
		Pagination: Pagination{
			Prev: lo.Ternary[*int](prev == 0 && page.offset == 0, nil, lo.ToPtr(prev)),
			Next: lo.Ternary[*int](hasNext, lo.ToPtr(next), nil),
		},
	}
}

// IsLastPage reports whether rows, fetched for page, contain no row beyond
// the page, i.e. there is no next page. AllRows pages are always last.
func IsLastPage[T any](rows []T, page Page) bool {
	size, bounded := page.size.Value()

	return !bounded || len(rows) < size+1
}

// TrimResultSet drops the lookahead row from rows fetched for a bounded page.
// Suppose the page size is 2:
//
//   - rows = [a, b, c] → [a, b];
//   - rows = [a, b] → [a, b].
//
// The result is a copy when trimmed; rows is never modified.
func TrimResultSet[T any](rows []T, page Page) []T {
	size, bounded := page.size.Value()
	if !bounded || len(rows) <= size {
		return rows
	}

	return lo.DropRight(rows, 1)
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Prev != nil
}

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool {
	return p.Next != nil
}

// PrevPage returns the previous page with the size of current.
func (p Pagination) PrevPage(current Page) (Page, bool) {
	if p.Prev == nil {
		return Page{}, false
	}

	return current.WithOffset(*p.Prev), true
}

// NextPage returns the next page with the size of current.
func (p Pagination) NextPage(current Page) (Page, bool) {
	if p.Next == nil {
		return Page{}, false
	}

	return current.WithOffset(*p.Next), true
}
