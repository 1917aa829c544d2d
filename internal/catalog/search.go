package catalog

import "strings"

// Sort orders search results.
type Sort string

const (
	SortLatest  Sort = "latest"
	SortPopular Sort = "popular"
	SortName    Sort = "name"
	SortOldest  Sort = "oldest"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ParseSort maps user input to a Sort, defaulting to SortLatest.
func ParseSort(s string) Sort {
	switch Sort(strings.ToLower(s)) {
	case SortPopular:
		return SortPopular
	case SortName:
		return SortName
	case SortOldest:
		return SortOldest
	default:
		return SortLatest
	}
}

// SearchQuery filters active ringtones. A numeric Query matches the numeric
// id exactly; any other text matches name, description or tag names.
type SearchQuery struct {
	Query    string
	Category string
	Tag      string
	Sort     Sort
	Page     int
	Limit    int
	// IncludeInactive also returns disabled ringtones.
	IncludeInactive bool
}

// Normalize clamps paging and fills defaults.
func (q SearchQuery) Normalize() SearchQuery {
	q.Query = strings.TrimSpace(q.Query)

	if q.Page < 1 {
		q.Page = 1
	}

	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}

	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}

	q.Sort = ParseSort(string(q.Sort))

	return q
}

// Offset is the number of rows skipped before the current page.
func (q SearchQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type SearchPage struct {
	Ringtones  []Ringtone
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// NewSearchPage wraps one page of results.
func NewSearchPage(q SearchQuery, ringtones []Ringtone, total int64) *SearchPage {
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}

	return &SearchPage{
		Ringtones:  ringtones,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: pages,
	}
}
