package render

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeText escapes the five reserved HTML characters in a single pass.
// It is not idempotent: escaping twice escapes the ampersands of the
// first pass.
func EscapeText(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	return escaper.Replace(s)
}

// EscapeAttr escapes an attribute value. It uses the same table as text.
func EscapeAttr(s string) string {
	return EscapeText(s)
}
