// Package fieldcodec reads and writes the comma separated record lines used by
// the stock file and the sales ledger.
package fieldcodec

import (
	"fmt"
	"strings"
	"unicode"
)

// Split breaks one line into fields. Quoted fields may contain commas and
// doubled quotes; anything between a closing quote and the next comma is
// dropped. Problems that do not stop parsing are returned as warnings.
func Split(line string) (fields []string, warnings []string) {
	line = strings.TrimRight(line, "\r\n")
	rest := line
	for {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			return fields, warnings
		}

		var field string
		if rest[0] == '"' {
			var warn string
			field, rest, warn = splitQuoted(rest[1:])
			if warn != "" {
				warnings = append(warnings, warn)
			}
		} else {
			end := strings.IndexByte(rest, ',')
			if end < 0 {
				field, rest = rest, ""
			} else {
				field, rest = rest[:end], rest[end:]
			}
			if strings.Contains(field, `"`) {
				warnings = append(warnings, fmt.Sprintf("quote inside unquoted field %q", field))
			}
			field = strings.TrimRightFunc(field, unicode.IsSpace)
		}
		fields = append(fields, field)

		if rest == "" {
			return fields, warnings
		}
		// rest starts with the delimiter
		rest = rest[1:]
		if strings.TrimSpace(rest) == "" {
			fields = append(fields, "")
			return fields, warnings
		}
	}
}

// splitQuoted consumes a quoted field whose opening quote is already gone and
// returns the field, the remainder starting at the next comma (or empty) and
// an optional warning.
func splitQuoted(s string) (field, rest, warning string) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '"' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '"' {
			b.WriteByte('"')
			i++
			continue
		}
		tail := s[i+1:]
		comma := strings.IndexByte(tail, ',')
		if comma < 0 {
			return b.String(), "", ""
		}
		return b.String(), tail[comma:], ""
	}
	return b.String(), "", fmt.Sprintf("unterminated quoted field %q", b.String())
}

// Quote wraps s in quotes, doubling any quote inside it.
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// needsQuotes reports whether s would not read back unchanged when written bare.
func needsQuotes(s string) bool {
	if s == "" {
		return false
	}
	if strings.ContainsAny(s, ",\"") {
		return true
	}
	return strings.TrimSpace(s) != s
}

// quoteIfNeeded leaves plain text bare and quotes only what Split could not
// read back unchanged.
func quoteIfNeeded(s string) string {
	if needsQuotes(s) {
		return Quote(s)
	}
	return s
}

// Join writes fields separated by commas. Fields for which quoted returns true
// are always quoted.
func Join(fields []string, quoted func(i int) bool) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if quoted != nil && quoted(i) {
			b.WriteString(Quote(f))
		} else {
			b.WriteString(f)
		}
	}
	return b.String()
}
