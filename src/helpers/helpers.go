// Package helpers contains small parsing utilities shared by the CLI and config.
package helpers

import "strings"

// ParseCSVList splits raw on commas and returns the trimmed, non-empty items.
func ParseCSVList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
