package classify

import (
	"regexp"
	"strings"
)

var trailingDigitsRe = regexp.MustCompile(`\s*\d+\s*$`)

// CleanLabel strips a trailing run of digits and surrounding whitespace from a
// classification label ("Beans 1" → "Beans"). Labels without trailing digits
// come back unchanged apart from whitespace trimming.
func CleanLabel(label string) string {
	return strings.TrimSpace(trailingDigitsRe.ReplaceAllString(label, ""))
}
