package txpager

import (
	"fmt"
	"strconv"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	allRowsLiteral = "all"
)

// Size is the number of rows on a page: either a bounded number of rows or
// AllRows. The zero value is Rows(0).
type Size struct {
	n   int
	all bool
}

// AllRows disables the limit. Pages of this size are never trimmed and never
// have a next page.
var AllRows = Size{all: true}

// Rows returns a bounded Size. Panics if n is negative: use NewPage for user
// input.
func Rows(n int) Size {
	if n < 0 {
		panic(fmt.Errorf("page size cannot be negative: %d", n))
	}

	return Size{n: n}
}

// IsAll reports whether the size is AllRows.
func (s Size) IsAll() bool {
	return s.all
}

// Value returns the number of rows and true for a bounded size, or 0 and
// false for AllRows.
func (s Size) Value() (int, bool) {
	if s.all {
		return 0, false
	}

	return s.n, true
}

// String - implements fmt.Stringer. Returns "all" or the decimal row count.
func (s Size) String() string {
	if s.all {
		return allRowsLiteral
	}

	return strconv.Itoa(s.n)
}

// ClampSize caps size at maxSize. AllRows is clamped to Rows(maxSize).
// The boolean result is true when size was left untouched.
//
// A non-positive maxSize disables clamping.
func ClampSize(size Size, maxSize int) (Size, bool) {
	if maxSize <= 0 {
		return size, true
	}

	if size.all || size.n > maxSize {
		return Rows(maxSize), false
	}

	return size, true
}
