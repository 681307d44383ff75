package services

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

var (
	// uidRE is the canonical UID shape checked by HandleSubmission.
	uidRE = regexp.MustCompile(`^\d{6,12}$`)

	// wordRE splits text into runs of Unicode word characters. RE2's \b is
	// ASCII-only, so "12345678입니다" would otherwise yield a UID.
	wordRE = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// ValidUID reports whether uid is 6-12 ASCII decimal digits.
func ValidUID(uid string) bool {
	return uidRE.MatchString(uid)
}

// ExtractUID returns the first word in text that is a valid UID. A digit run
// glued to letters of any script is not a UID. Text is NFKC normalized first
// so full-width digits typed on mobile keyboards count.
func ExtractUID(text string) (string, bool) {
	for _, w := range wordRE.FindAllString(norm.NFKC.String(text), -1) {
		if uidRE.MatchString(w) {
			return w, true
		}
	}
	return "", false
}
