package core

// convert.go cleans raw CSV cells before they are checked.
//
// Spreadsheet tools leave artifacts in exported files:
//   - surrounding whitespace
//   - Excel text-formula wrappers (="value")
//   - decomposed accents (e + U+0301 instead of é)
//
// CleanCell removes all of them. Header lookups are case-insensitive.

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// HeaderIndex maps a lowercased header name to its column.
type HeaderIndex map[string]int

// MakeHeaderIndex builds a HeaderIndex from a header row. The first
// occurrence of a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// Cell returns the cleaned value of the named column, or "" when the
// column is missing or the row is short.
func (h HeaderIndex) Cell(row []string, name string) string {
	i, ok := h[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return CleanCell(row[i])
}

// CleanCell trims whitespace, unwraps ="..." and NFC-normalizes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = strings.TrimSpace(s[2 : len(s)-1])
	}
	return norm.NFC.String(s)
}
