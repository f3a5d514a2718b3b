package util

import (
	"regexp"
	"strings"
	"unicode/utf16"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ContainsAnyCaseInsensitive returns true if text contains any of the needles (case-insensitive).
func ContainsAnyCaseInsensitive(text string, needles []string) bool {
	lt := strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(lt, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Truncate keeps at most n runes of s and appends suffix when it cut anything.
func Truncate(s string, n int, suffix string) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + suffix
}

// TruncateUTF16 is Truncate measured in UTF-16 code units, so lengths agree
// with the platform's character counts. A surrogate pair split by the cut
// becomes U+FFFD.
func TruncateUTF16(s string, n int, suffix string) string {
	units := utf16.Encode([]rune(s))
	if len(units) <= n {
		return s
	}
	return string(utf16.Decode(units[:n])) + suffix
}

// UTF16Len returns the number of UTF-16 code units in s.
func UTF16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
