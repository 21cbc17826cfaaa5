package store

import "strings"

const (
	searchLimit    = 100
	quickOpenLimit = 20
)

// SearchResult is one full-text hit. Lower rank is a better match, per the
// bm25 convention. Never persisted.
type SearchResult struct {
	DocumentUUID string  `json:"document_uuid"`
	Title        string  `json:"title"`
	Path         string  `json:"path"`
	Snippet      string  `json:"snippet"`
	Rank         float64 `json:"rank"`
}

// buildMatchPattern turns a raw query into an FTS5 match expression: split on
// whitespace, append a prefix wildcard to every token, join with spaces
// (implicit AND). An empty or all-whitespace query yields "".
func buildMatchPattern(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	terms := make([]string, len(fields))
	for i, f := range fields {
		terms[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}
