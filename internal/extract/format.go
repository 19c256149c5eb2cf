package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ErrorPrefix starts every failure written in place of extracted text.
const ErrorPrefix = "ERROR: "

const previewWidth = 60

// FormatError renders err using the ERROR: output convention.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return ErrorPrefix + err.Error()
}

// Output returns text on success and the formatted error otherwise.
func Output(text string, err error) string {
	if err != nil {
		return FormatError(err)
	}
	return text
}

// CharCount counts runes, not bytes.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}

// LineCount counts non-blank lines.
func LineCount(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Preview collapses whitespace in s and truncates it to width terminal
// columns. Hangul takes two columns per syllable.
func Preview(s string, width int) string {
	return runewidth.Truncate(strings.Join(strings.Fields(s), " "), width, "…")
}
