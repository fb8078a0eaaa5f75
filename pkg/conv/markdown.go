package conv

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions  = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock | parser.HardLineBreak
	htmlFlags   = html.CommonFlags | html.HrefTargetBlank
	tgPolicy    = bluemonday.NewPolicy()
	emailPolicy = bluemonday.NewPolicy()
)

func init() {
	// https://core.telegram.org/bots/api#html-style
	tgPolicy.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	tgPolicy.AllowAttrs("href").OnElements("a")

	emailPolicy.AllowElements("p", "br", "b", "strong", "i", "em", "u", "ul", "ol", "li",
		"h1", "h2", "h3", "blockquote", "code", "pre", "hr")
	emailPolicy.AllowStandardURLs()
	emailPolicy.AllowAttrs("href").OnElements("a")
	emailPolicy.RequireNoFollowOnLinks(true)
	emailPolicy.AddTargetBlankToFullyQualifiedLinks(true)
}

func render(md []byte) []byte {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	return markdown.Render(p.Parse(md), renderer)
}

// MarkdownToTelegramHTML renders md restricted to the tag set Telegram accepts.
func MarkdownToTelegramHTML(md []byte) string {
	return string(tgPolicy.SanitizeBytes(render(md)))
}

// MarkdownToEmailHTML renders a reply body for an email draft. Model output is
// untrusted, so everything outside a small formatting whitelist is stripped.
func MarkdownToEmailHTML(md []byte) string {
	if len(md) == 0 {
		return ""
	}
	return string(emailPolicy.SanitizeBytes(render(md)))
}
