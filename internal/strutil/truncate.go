// Package strutil provides small string helpers shared across packages.
package strutil

// Truncate truncates a string to a maximum number of runes. Rune-level so
// accented and multi-byte characters are never cut in half. Returns the
// empty string when maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
