// Package xmlutil escapes text destined for XML-delimited prompt sections.
package xmlutil

import "strings"

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&#34;",
	"'", "&#39;",
)

// Escape neutralizes XML markup in s. Document text wrapped in a tagged
// prompt section must not be able to close the surrounding tag or inject
// one of its own.
func Escape(s string) string {
	return escaper.Replace(s)
}
