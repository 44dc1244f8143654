package corpus

import "strings"

// SourceKey derives the canonical join key for a document display name:
// trimmed, lowercased, internal whitespace runs collapsed to a single space.
// It is idempotent, so keys can be re-canonicalized safely.
//
// The chunk index and the routing index are joined solely on this key, so
// every component that stamps a source_key must go through this function.
func SourceKey(display string) string {
	lowered := strings.ToLower(strings.TrimSpace(display))
	return strings.Join(strings.Fields(lowered), " ")
}
