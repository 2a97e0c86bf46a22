// Package strings provides string slice utilities for configuration
// parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty entries from a slice,
// trimming whitespace from each element. First occurrence wins, order is
// preserved. Used for comma-separated environment lists such as broker
// addresses, where a repeated or padded entry must not produce a second
// connection.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
