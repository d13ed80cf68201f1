package applescript

import (
	"strings"
	"unicode"
)

// Quote renders s as an AppleScript string literal. Quotes and backslashes
// are escaped, CR, LF and TAB become escape sequences, and any other control
// character is dropped, so the result can never terminate the literal early.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)

	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if unicode.IsControl(r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')

	return b.String()
}
