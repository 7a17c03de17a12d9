package logging

import "regexp"

var (
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\b\d{2,3}-\d{3,4}-\d{4}\b`)
)

// RedactPII masks email addresses and phone numbers before user text is
// written to any log sink.
func RedactPII(s string) string {
	s = emailRE.ReplaceAllString(s, "[email]")
	return phoneRE.ReplaceAllString(s, "[phone]")
}
