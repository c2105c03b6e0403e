// Package annotate normalizes commit and issue messages and reads the billing
// marker embedded in them.
package annotate

import (
	"regexp"
	"strconv"
)

var (
	lineBreak = regexp.MustCompile(`\r?\n|\r`)
	// The marker is "$" on both sides; there are no letters to fold.
	billedMarker = regexp.MustCompile(`\$\s*(\d+)\s*\$`)
)

// Normalize replaces every line break (CRLF, LF or CR) with a single space.
func Normalize(text string) string {
	return lineBreak.ReplaceAllString(text, " ")
}

// BilledMinutes returns the number inside the first "$<minutes>$" marker of
// text, or 0 when there is none.
func BilledMinutes(text string) int {
	m := billedMarker.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
