package jobs

import (
	"fmt"
	"net/url"
	"strings"
)

// FilterFlags are the search filter toggles applied to every query
type FilterFlags struct {
	EasyApplyOnly bool
	Remote        bool
	DatePosted    string // "", "day", "week", "month"
	Experience    []string
}

// Criteria is the immutable search configuration for a run
type Criteria struct {
	Keywords  []string
	Locations []string
	Filters   FilterFlags
}

// SearchQuery is one concrete keyword+location combination
type SearchQuery struct {
	Keyword  string
	Location string
	Filters  FilterFlags
}

// ExpandCriteria computes the Cartesian expansion of keywords and locations,
// preserving configuration order. The result is computed once at run start.
func ExpandCriteria(c Criteria) []SearchQuery {
	queries := make([]SearchQuery, 0, len(c.Keywords)*len(c.Locations))
	for _, kw := range c.Keywords {
		for _, loc := range c.Locations {
			queries = append(queries, SearchQuery{
				Keyword:  kw,
				Location: loc,
				Filters:  c.Filters,
			})
		}
	}
	return queries
}

// URL renders the query as a concrete search URL against the given base.
// Page offsets are added separately during pagination.
func (q SearchQuery) URL(baseURL string) string {
	params := url.Values{}
	params.Set("keywords", q.Keyword)
	params.Set("location", q.Location)

	if q.Filters.EasyApplyOnly {
		params.Set("f_AL", "true")
	}
	if q.Filters.Remote {
		params.Set("f_WT", "2")
	}
	switch q.Filters.DatePosted {
	case "day":
		params.Set("f_TPR", "r86400")
	case "week":
		params.Set("f_TPR", "r604800")
	case "month":
		params.Set("f_TPR", "r2592000")
	}
	if len(q.Filters.Experience) > 0 {
		params.Set("f_E", strings.Join(q.Filters.Experience, ","))
	}

	return baseURL + "?" + params.Encode()
}

// PageURL appends the result-page offset to the query URL.
// LinkedIn paginates job results in blocks of 25.
func (q SearchQuery) PageURL(baseURL string, page int) string {
	u := q.URL(baseURL)
	if page <= 0 {
		return u
	}
	return fmt.Sprintf("%s&start=%d", u, page*25)
}
