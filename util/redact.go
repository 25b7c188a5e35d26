package util

import (
	"regexp"
)

var redactRegex = regexp.MustCompile(`(?i)"?(password|access_?token|refresh_?token|captcha|authorization|gcid)"?\s*[:=]\s*("[^"]*"|[^\s,&}]+)`)

// Redact masks secrets in the given string
func Redact(s string) string {
	return redactRegex.ReplaceAllStringFunc(s, func(m string) string {
		loc := redactRegex.FindStringSubmatchIndex(m)
		// keep key and separator, mask value
		return m[:loc[4]] + "***"
	})
}
