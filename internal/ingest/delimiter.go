package ingest

import (
	"strings"
	"unicode/utf8"
)

// delimiterCandidates is both the candidate set and the tie-break order.
var delimiterCandidates = []rune{',', '\t', ';', '|'}

// DetectDelimiter picks the field separator of delimited text by counting
// candidates on the first line only. The most frequent candidate wins; ties
// go to the earliest candidate in delimiterCandidates, and a line with none
// of them yields a comma.
func DetectDelimiter(text string) rune {
	first := text
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	first = strings.TrimSuffix(first, "\r")

	best, bestCount := ',', 0
	for _, c := range delimiterCandidates {
		if n := strings.Count(first, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// ParseDelimiter converts a user's delimiter choice to a rune. Empty or
// "auto" yields 0, meaning no override. "tab" and the two-character escape
// \t both select a tab. Anything else must be exactly one character other
// than a line break or a double quote.
func ParseDelimiter(s string) (rune, error) {
	switch {
	case s == "" || strings.EqualFold(s, "auto"):
		return 0, nil
	case s == `\t` || strings.EqualFold(s, "tab"):
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, Errorf(KindBadInput, "delimiter must be a single character, \"tab\" or \"auto\"")
	}
	switch r {
	case '\r', '\n', '"':
		return 0, Errorf(KindBadInput, "delimiter %q is not allowed", r)
	}
	return r, nil
}
