package websearch

import (
	"fmt"
	"strings"

	"github.com/sandevgo/replydesk/internal/core"
)

var realTimeKeywords = []string{
	"current",
	"latest",
	"recent",
	"today",
	"now",
	"what is",
	"who is",
	"when did",
	"price of",
	"cost of",
	"weather",
	"news",
	"update",
}

// ShouldSearch reports whether a query warrants a web search: the knowledge
// base had nothing, or the query asks for current information.
func ShouldSearch(query string, hasKnowledge bool) bool {
	if !hasKnowledge {
		return true
	}
	lower := strings.ToLower(query)
	for _, k := range realTimeKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Format renders results as a prompt section.
func Format(results []core.WebResult) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("%d. %s\n   URL: %s\n   %s", i+1, r.Title, r.URL, r.Snippet)
	}
	return "Recent web search results:\n" + strings.Join(parts, "\n\n")
}
