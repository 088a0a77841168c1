package keyword

import "strings"

// reserved lists the query-string characters escaped by Sanitize.
const reserved = `/()[]{}\"'+-*?:~^`

// Sanitize escapes every reserved query-syntax character with a backslash,
// collapses whitespace runs to one space and trims. It is not idempotent:
// sanitize raw input exactly once.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 8)
	for _, r := range raw {
		if strings.ContainsRune(reserved, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
