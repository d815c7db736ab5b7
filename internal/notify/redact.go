package notify

import (
	"strings"
	"unicode/utf8"
)

// RedactEmail masks an email address for logging, keeping the first
// character of the local part: "john@gmail.com" becomes "j***@gmail.com".
// Strings without an "@" are masked entirely.
func RedactEmail(email string) string {
	if email == "" {
		return ""
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	_, size := utf8.DecodeRuneInString(local)
	return local[:size] + "***@" + domain
}
