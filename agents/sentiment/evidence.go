// Package sentiment analyzes news and social sentiment for shortlisted
// stocks. Evidence is collected adaptively: the agent keeps reasoning about
// whether it has enough coverage and widens its search until satisfied or
// out of options.
package sentiment

import (
	"sort"
	"strings"
)

// Article is one piece of evidence: a news article or a social mention
// normalized into the same shape.
type Article struct {
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Source        string `json:"source"`
}

// dedupe drops articles whose lowercased title was already seen, keeping
// first occurrences in order.
func dedupe(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0:0]
	for _, a := range articles {
		key := strings.ToLower(strings.TrimSpace(a.Title))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// countSources returns the number of distinct evidence sources.
func countSources(articles []Article) int {
	return len(sourceNames(articles))
}

// sourceNames returns the distinct evidence sources, sorted.
func sourceNames(articles []Article) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, a := range articles {
		if a.Source == "" {
			continue
		}
		if _, ok := seen[a.Source]; ok {
			continue
		}
		seen[a.Source] = struct{}{}
		names = append(names, a.Source)
	}
	sort.Strings(names)
	return names
}
