package models

import "strings"

const tagSeparator = "\x1f"

// TagIndex flattens tags into a lowercased, separator-delimited string so a substring
// search can match a single tag without touching JSON encoding or crossing tag boundaries.
func TagIndex(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		lowered = append(lowered, strings.ToLower(tag))
	}
	return tagSeparator + strings.Join(lowered, tagSeparator) + tagSeparator
}
