package domain

import "regexp"

var tickerRe = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// ValidateTicker reports whether t looks like an exchange ticker symbol.
func ValidateTicker(t string) bool {
	return tickerRe.MatchString(t)
}
