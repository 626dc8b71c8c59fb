package artificer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reCRLF               = regexp.MustCompile(`\r\n?`)
	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
)

// SanitizeText normalizes raw input before any importer parses it:
// - Ensure valid UTF-8
// - Normalize line endings (CRLF -> LF)
// - Strip non-printable/control characters (keep \n, \t)
// Trailing whitespace is preserved because two trailing spaces before a
// newline are a markdown hard break.
func SanitizeText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s = reCRLF.ReplaceAllString(s, "\n")

	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	return s
}

// normalizeMarkdown applies post-processing to rendered markdown:
// - Strip trailing whitespace from each line
// - Collapse 3+ consecutive newlines to 2
// - Trim leading/trailing whitespace from the final output
func normalizeMarkdown(s string) string {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	s = reTrailingWhitespace.ReplaceAllString(s, "\n")
	s = reMultipleNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
