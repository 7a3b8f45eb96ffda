package logging

import "strings"

// Sanitize flattens line breaks, trims surrounding space and truncates s
// to 256 bytes for safe inclusion in a log line. The loggers built by this
// package do not apply it: a string is sanitized only where a caller
// passes it through Sanitize.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	const max = 256
	if len(s) > max {
		s = s[:max] + "…"
	}
	return s
}
