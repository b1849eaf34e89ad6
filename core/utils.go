package core

import "strings"

// CleanString trims surrounding whitespace from user-entered text before it is
// persisted, optionally lowering it (emails are stored lowercase).
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
