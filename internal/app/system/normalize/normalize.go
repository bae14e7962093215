// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding space and collapses internal runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NameCI returns the case/diacritic-folded form used for sorting and search.
func NameCI(s string) string {
	return text.Fold(Name(s))
}

// Domain lowercases a tenant domain and strips a scheme, path or trailing dot.
func Domain(s string) string {
	d := strings.ToLower(strings.TrimSpace(s))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSuffix(d, ".")
}

// Token trims a public feedback token. Tokens are case-sensitive.
func Token(s string) string {
	return strings.TrimSpace(s)
}
