// Package cnpj canonicalizes raw user-entered registry numbers into the
// 14-digit form used as a task's primary key.
package cnpj

import (
	"regexp"
	"sort"
	"strings"
)

const Length = 14

var nonDigit = regexp.MustCompile(`\D`)

// Normalize strips every non-digit character and left-pads with zeros to
// 14 characters. Inputs longer than 14 digits are returned as-is; the
// lookup client rejects them later with INVALID_INPUT.
func Normalize(raw string) string {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) >= Length {
		return digits
	}
	return strings.Repeat("0", Length-len(digits)) + digits
}

// NormalizeList splits newline-delimited input, normalizes every
// non-blank line, deduplicates and sorts ascending. Repeated submissions
// of the same pasted block therefore produce the same enqueue set.
func NormalizeList(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		id := Normalize(line)
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// IsValid reports whether the identifier is exactly 14 digits.
func IsValid(identifier string) bool {
	if len(identifier) != Length {
		return false
	}
	for _, r := range identifier {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
