// Package htmlsanitize cleans user-supplied text before it is stored.
//
// Feedback, goal and review text is rendered by clients that may treat it as
// HTML, so anything stored is either stripped to plain text (Text) or limited
// to a small formatting allowlist (Rich).
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	rich   = richPolicy()
)

func richPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "b", "em", "i", "u", "ul", "ol", "li", "blockquote", "code", "pre")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}

// Text strips every tag and returns trimmed plain text. Entities produced by
// the policy are unescaped so the stored value reads naturally.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Rich keeps basic formatting tags and drops scripts, styles, event handlers
// and unsafe URLs.
func Rich(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(rich.Sanitize(s))
}
