package jobs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandCriteria_ProductSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		keywords  []string
		locations []string
		want      int
	}{
		{"two by three", []string{"golang", "backend"}, []string{"Berlin", "Remote", "Munich"}, 6},
		{"single pair", []string{"golang"}, []string{"Remote"}, 1},
		{"no keywords", nil, []string{"Remote"}, 0},
		{"no locations", []string{"golang"}, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queries := ExpandCriteria(Criteria{Keywords: tt.keywords, Locations: tt.locations})
			assert.Len(t, queries, tt.want)
		})
	}
}

func TestExpandCriteria_PreservesOrder(t *testing.T) {
	t.Parallel()

	queries := ExpandCriteria(Criteria{
		Keywords:  []string{"golang", "backend"},
		Locations: []string{"Berlin", "Remote"},
	})
	require.Len(t, queries, 4)

	assert.Equal(t, SearchQuery{Keyword: "golang", Location: "Berlin"}, queries[0])
	assert.Equal(t, SearchQuery{Keyword: "golang", Location: "Remote"}, queries[1])
	assert.Equal(t, SearchQuery{Keyword: "backend", Location: "Berlin"}, queries[2])
	assert.Equal(t, SearchQuery{Keyword: "backend", Location: "Remote"}, queries[3])
}

func TestSearchQueryURL_SinglePair(t *testing.T) {
	t.Parallel()

	queries := ExpandCriteria(Criteria{
		Keywords:  []string{"golang"},
		Locations: []string{"Remote"},
		Filters:   FilterFlags{EasyApplyOnly: true},
	})
	require.Len(t, queries, 1)

	u := queries[0].URL("https://www.linkedin.com/jobs/search/")
	assert.Contains(t, u, "keywords=golang")
	assert.Contains(t, u, "location=Remote")
	assert.Contains(t, u, "f_AL=true")
}

func TestSearchQueryURL_Filters(t *testing.T) {
	t.Parallel()

	q := SearchQuery{
		Keyword:  "golang",
		Location: "Berlin",
		Filters: FilterFlags{
			EasyApplyOnly: true,
			Remote:        true,
			DatePosted:    "week",
			Experience:    []string{"2", "3"},
		},
	}
	u := q.URL("https://www.linkedin.com/jobs/search/")

	assert.Contains(t, u, "f_AL=true")
	assert.Contains(t, u, "f_WT=2")
	assert.Contains(t, u, "f_TPR=r604800")
	assert.Contains(t, u, "f_E=2%2C3")
}

func TestSearchQueryURL_UnknownDatePostedIgnored(t *testing.T) {
	t.Parallel()

	q := SearchQuery{Keyword: "golang", Location: "Berlin", Filters: FilterFlags{DatePosted: "fortnight"}}
	assert.NotContains(t, q.URL("https://base"), "f_TPR")
}

func TestSearchQueryPageURL(t *testing.T) {
	t.Parallel()

	q := SearchQuery{Keyword: "golang", Location: "Remote"}
	base := "https://www.linkedin.com/jobs/search/"

	assert.Equal(t, q.URL(base), q.PageURL(base, 0))
	assert.True(t, strings.HasSuffix(q.PageURL(base, 1), "&start=25"))
	assert.True(t, strings.HasSuffix(q.PageURL(base, 3), "&start=75"))
}
