// Package moderation keeps unsafe or personal subjects off the tombstone.
package moderation

import (
	"regexp"
	"strings"

	"deadticker/internal/util"
)

// Placeholder replaces any subject that fails moderation.
const Placeholder = "MY BAGS"

// DefaultBlocklist is matched as case-insensitive substrings.
var DefaultBlocklist = []string{"racial slur 1", "racial slur 2", "dox"}

// crude person-name guard: two capitalised words
var personName = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+$`)

// Result is the outcome of Sanitize.
type Result struct {
	Subject     string
	WasFiltered bool
}

// Filter sanitizes subjects against a blocklist.
type Filter struct{ blocklist []string }

// New returns a Filter using DefaultBlocklist plus extra entries.
func New(extra ...string) Filter {
	bl := make([]string, 0, len(DefaultBlocklist)+len(extra))
	bl = append(bl, DefaultBlocklist...)
	for _, e := range extra {
		if e = strings.TrimSpace(e); e != "" {
			bl = append(bl, e)
		}
	}
	return Filter{blocklist: bl}
}

// Sanitize returns Placeholder for empty, blocklisted or name-like subjects
// and the subject unchanged otherwise.
func (f Filter) Sanitize(subject string) Result {
	if strings.TrimSpace(subject) == "" || util.ContainsAnyCaseInsensitive(subject, f.blocklist) {
		return Result{Subject: Placeholder, WasFiltered: true}
	}
	if personName.MatchString(subject) {
		return Result{Subject: Placeholder, WasFiltered: true}
	}
	return Result{Subject: subject}
}

// Sanitize applies the default Filter.
func Sanitize(subject string) Result { return New().Sanitize(subject) }
