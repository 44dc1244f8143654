package rag

import (
	"regexp"
	"strconv"
)

// pageScanWindow bounds how much of a chunk's text is scanned for inline
// page markers when numeric page metadata is missing.
const pageScanWindow = 400

// Inline page marker patterns, tried in order. Extractors that lose page
// metadata often leave one of these in the text itself.
var pageMarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[\s*page\s+(\d+)\s*\]`),
	regexp.MustCompile(`(?i)page\s*[:#-]\s*(\d+)`),
	regexp.MustCompile(`(?i)\bp\.\s*(\d+)`),
}

// effectivePage resolves the page number to deduplicate on: numeric metadata
// wins, else the first inline marker within the leading pageScanWindow runes,
// else unknown (-1).
func effectivePage(page int, text string) int {
	if page >= 0 {
		return page
	}

	window := text
	if runes := []rune(window); len(runes) > pageScanWindow {
		window = string(runes[:pageScanWindow])
	}

	for _, pattern := range pageMarkerPatterns {
		if match := pattern.FindStringSubmatch(window); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				return n
			}
		}
	}
	return -1
}

// dedupeCandidates keeps the first (highest ranked) candidate for each
// (source_key, effective page) pair. Candidates with unknown pages still
// dedupe against each other within a source.
func dedupeCandidates(candidates []candidate) []candidate {
	type pageKey struct {
		sourceKey string
		page      int
	}

	seen := make(map[pageKey]struct{}, len(candidates))
	out := make([]candidate, 0, len(candidates))
	for _, cand := range candidates {
		key := pageKey{cand.SourceKey, effectivePage(cand.Page, cand.Text)}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cand)
	}
	return out
}
