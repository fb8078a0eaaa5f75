package conv

import (
	"strings"

	"github.com/inbucket/html2text"
)

// HTMLToText flattens an HTML fragment (email bodies, search snippets) to plain text.
// Input that fails to parse is returned trimmed as-is.
func HTMLToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	text, err := html2text.FromString(s, html2text.Options{OmitLinks: true})
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(text)
}
