package reconcile

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// numberPrefix matches a leading run of digits, its separators, and the
// remaining text. Input is whitespace-collapsed before matching.
var numberPrefix = regexp.MustCompile(`^\d+[ \-._:]+([^ \-._:].*)$`)

// Normalize returns the NormalizedKey for name: whitespace collapsed, every
// leading numeric prefix ("1000 - ") dropped, lower-cased.
// It is total and idempotent; empty input yields "".
func Normalize(name string) string {
	// Casers are stateful; one per call keeps Normalize safe for concurrent use.
	return cases.Lower(language.Und).String(StripNumberPrefix(name))
}

// StripNumberPrefix collapses whitespace and drops leading numeric prefixes
// while preserving case. "3000 - Root" becomes "Root".
func StripNumberPrefix(name string) string {
	n := strings.Join(strings.Fields(name), " ")
	for {
		m := numberPrefix.FindStringSubmatch(n)
		if m == nil {
			return n
		}
		n = m[1]
	}
}
