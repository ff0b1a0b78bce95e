package txpager

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

var _encoder = base64.RawURLEncoding

// OffsetToken is an opaque page token for APIs that expose cursor-style
// navigation on top of LIMIT/OFFSET. It encodes the offset of the page.
type OffsetToken struct {
	offset int
}

// NewOffsetToken returns a token pointing at offset.
func NewOffsetToken(offset int) OffsetToken {
	return OffsetToken{offset: offset}
}

// DecodeOffsetToken parses a base64-encoded token. An empty string decodes to
// the token of offset 0.
func DecodeOffsetToken(b64String string) (OffsetToken, error) {
	if len(b64String) == 0 {
		return OffsetToken{}, nil
	}

	offsetBytes, err := _encoder.DecodeString(b64String)
	if err != nil {
		return OffsetToken{}, fmt.Errorf("%w: failed to decode base64: %w", ErrInvalidPageToken, err)
	}

	offset, err := strconv.Atoi(string(offsetBytes))
	if err != nil {
		return OffsetToken{}, fmt.Errorf("%w: failed to decode offset value: %w", ErrInvalidPageToken, err)
	}

	if offset < 0 {
		return OffsetToken{}, fmt.Errorf("%w: negative offset %d", ErrInvalidPageToken, offset)
	}

	return OffsetToken{offset: offset}, nil
}

// String - implements fmt.Stringer. Every offset, 0 included, is encoded.
func (t OffsetToken) String() string {
	return _encoder.EncodeToString([]byte(strconv.Itoa(t.offset)))
}

// Offset returns the numeric offset value.
func (t OffsetToken) Offset() int {
	return t.offset
}

var _ fmt.Stringer = OffsetToken{}

// Tokens encodes the neighbouring pages. A missing page yields "".
func (p Pagination) Tokens() (prev string, next string) {
	if p.Prev != nil {
		prev = NewOffsetToken(*p.Prev).String()
	}
	if p.Next != nil {
		next = NewOffsetToken(*p.Next).String()
	}

	return prev, next
}

// DecodePageToken builds a Page from a raw page size (see NewPage) and a page
// token produced by Pagination.Tokens. An empty token selects the first page.
func DecodePageToken(pageSize any, token string) (Page, error) {
	decoded, err := DecodeOffsetToken(token)
	if err != nil {
		return Page{}, err
	}

	return NewPage(pageSize, decoded.offset)
}
