package txpager

import (
	"net/url"
)

// Query parameter names read by PageFromQuery.
const (
	QueryParamPageSize = "pageSize"
	QueryParamOffset   = "offset"
)

// RawPage is intended for API payloads. Both fields keep whatever the client
// sent (number, numeric string, "all" or nothing) until Decode validates them.
// For proper code generation, inline it:
//
//	type MyFilter struct {
//	    Paging RawPage `json:",inline"`
//	}
type RawPage struct {
	// PageSize - number of rows per page or "all". Defaults to DefaultPageSize.
	PageSize any `json:"pageSize,omitempty"`
	// Offset - number of rows to skip. Defaults to 0.
	Offset any `json:"offset,omitempty"`
}

// Decode converts RawPage into a validated Page.
func (p RawPage) Decode() (Page, error) {
	return NewPage(p.PageSize, p.Offset)
}

// PageFromQuery builds a Page from the pageSize and offset query parameters.
// Missing parameters take their defaults; present but empty ones are invalid.
func PageFromQuery(values url.Values) (Page, error) {
	return rawPageFromQuery(values).Decode()
}

func rawPageFromQuery(values url.Values) RawPage {
	var raw RawPage
	if values.Has(QueryParamPageSize) {
		raw.PageSize = values.Get(QueryParamPageSize)
	}
	if values.Has(QueryParamOffset) {
		raw.Offset = values.Get(QueryParamOffset)
	}

	return raw
}
