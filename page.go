package txpager

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Page is an immutable size/offset pair. Build it with NewPage, MustPage or
// DefaultPage.
type Page struct {
	size   Size
	offset int
}

// NewPage validates raw page size and offset, typically taken straight from a
// request. Both arguments may be nil (defaults: DefaultPageSize and 0),
// integers, floats, strings, []byte, json.Number or fmt.Stringer values, or
// pointers to int, int64, float64 and string. pageSize may also be "all" or a
// Size.
//
// A bounded page whose lookahead row lies beyond math.MaxInt is rejected with
// ErrPageOutOfRange.
//
// Numbers are parsed leniently in base 10: leading whitespace and a sign are
// allowed, digits are read up to the first non-digit and fractions are
// truncated, so "14.1", 14.1 and "14" are all 14.
func NewPage(pageSize, offset any) (Page, error) {
	pageOffset, err := parseOffset(offset)
	if err != nil {
		return Page{}, err
	}

	size, err := parseSize(pageSize)
	if err != nil {
		return Page{}, err
	}

	if n, ok := size.Value(); ok && n > maxSizeAt(pageOffset) {
		return Page{}, fmt.Errorf("%w: size %s at offset %d", ErrPageOutOfRange, size, pageOffset)
	}

	return Page{size: size, offset: pageOffset}, nil
}

// MustPage is like NewPage but panics on invalid input.
func MustPage(pageSize, offset any) Page {
	page, err := NewPage(pageSize, offset)
	if err != nil {
		panic(err)
	}

	return page
}

// DefaultPage returns the first page of DefaultPageSize rows.
func DefaultPage() Page {
	return Page{size: Rows(DefaultPageSize)}
}

// Size returns the page size.
func (p Page) Size() Size {
	return p.size
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return p.offset
}

// IsAll reports whether the page fetches all rows from Offset on.
func (p Page) IsAll() bool {
	return p.size.IsAll()
}

// DatasetLimit returns the number of rows a query must fetch for this page:
//   - bounded size N → N+1, true (the extra row signals a next page);
//   - AllRows → 0, false.
func (p Page) DatasetLimit() (int, bool) {
	n, ok := p.size.Value()
	if !ok {
		return 0, false
	}

	return n + 1, true
}

// WithOffset returns a copy of the page starting at offset. Negative offsets
// are reset to 0, offsets past the addressable row range are capped.
func (p Page) WithOffset(offset int) Page {
	p.offset = max(offset, 0)
	if n, ok := p.size.Value(); ok {
		p.offset = min(p.offset, maxOffsetFor(n))
	}

	return p
}

// maxSizeAt and maxOffsetFor bound a bounded page: it fetches rows
// [offset, offset+size+1), which has to fit in an int.
func maxSizeAt(offset int) int {
	return math.MaxInt - 1 - offset
}

func maxOffsetFor(size int) int {
	return math.MaxInt - 1 - size
}

// Clamp returns a copy of the page with its size capped at maxSize.
func (p Page) Clamp(maxSize int) Page {
	p.size, _ = ClampSize(p.size, maxSize)

	return p.WithOffset(p.offset)
}

// String - implements fmt.Stringer.
func (p Page) String() string {
	return fmt.Sprintf("size=%s offset=%d", p.size, p.offset)
}

var _ fmt.Stringer = Page{}

func parseOffset(raw any) (int, error) {
	raw = deref(raw)
	if raw == nil {
		return 0, nil
	}

	offset, ok := parseInt(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOffset, raw)
	}

	if offset < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegativeOffset, raw)
	}

	return offset, nil
}

func parseSize(raw any) (Size, error) {
	raw = deref(raw)
	switch v := raw.(type) {
	case nil:
		return Rows(DefaultPageSize), nil
	case Size:
		return v, nil
	case string:
		if v == allRowsLiteral {
			return AllRows, nil
		}
	}

	n, ok := parseInt(raw)
	if !ok {
		return Size{}, fmt.Errorf("%w: %v", ErrInvalidPageSize, raw)
	}

	if n < 0 {
		return Size{}, fmt.Errorf("%w: %v", ErrNegativePageSize, raw)
	}

	return Rows(n), nil
}

// deref unwraps supported pointer inputs. Nil pointers count as absent.
func deref(raw any) any {
	switch v := raw.(type) {
	case *int:
		if v == nil {
			return nil
		}
		return *v
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	case *float64:
		if v == nil {
			return nil
		}
		return *v
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return raw
	}
}

func parseInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int64ToInt(v)
	case uint:
		return uint64ToInt(uint64(v))
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return uint64ToInt(uint64(v))
	case uint64:
		return uint64ToInt(v)
	case float32:
		return truncateFloat(float64(v))
	case float64:
		return truncateFloat(v)
	case string:
		return parseIntPrefix(v)
	case []byte:
		return parseIntPrefix(string(v))
	case json.Number:
		return parseIntPrefix(v.String())
	case fmt.Stringer:
		return parseIntPrefix(v.String())
	default:
		return 0, false
	}
}

// parseIntPrefix reads an optionally signed run of decimal digits after
// leading whitespace and ignores the rest of the string.
func parseIntPrefix(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}

	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == digitsStart {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}

	return n, true
}

func truncateFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	t := math.Trunc(f)
	if t < math.MinInt || t >= math.MaxInt {
		return 0, false
	}

	return int(t), true
}

func int64ToInt(v int64) (int, bool) {
	if v < math.MinInt || v > math.MaxInt {
		return 0, false
	}

	return int(v), true
}

func uint64ToInt(v uint64) (int, bool) {
	if v > math.MaxInt {
		return 0, false
	}

	return int(v), true
}
