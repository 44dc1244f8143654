package indexer

import (
	"regexp"
	"sort"
	"strings"

	"corpusqa/internal/corpus"
)

// RoutingBuilder produces the coarse per-document routing segments: a bounded
// prefix of each source's pages, cleaned of references and boilerplate, then
// cut into small overlapping segments used only for document-level matching.
type RoutingBuilder struct {
	// MaxSourceChars bounds the cleaned text per source.
	MaxSourceChars int
	// MaxPages bounds how many leading pages contribute.
	MaxPages int
	// SegmentChars / SegmentOverlap size the fixed overlapping segments.
	SegmentChars   int
	SegmentOverlap int
}

var (
	referencesHeading = regexp.MustCompile(`(?im)^\s*references\s*$`)
	pageMarkerLine    = regexp.MustCompile(`(?i)^\s*(page\s+\d+(\s+of\s+\d+)?|-\s*\d+\s*-|\d{1,4})\s*$`)
	boilerplateLine   = regexp.MustCompile(`(?i)(copyright|©|\(c\)\s*\d{4}|all rights reserved|creative commons|arxiv:|doi:|licensed under)`)
)

// NewRoutingBuilder creates a builder with the given bounds.
func NewRoutingBuilder(maxSourceChars, maxPages, segmentChars, segmentOverlap int) *RoutingBuilder {
	return &RoutingBuilder{
		MaxSourceChars: maxSourceChars,
		MaxPages:       maxPages,
		SegmentChars:   segmentChars,
		SegmentOverlap: segmentOverlap,
	}
}

// Build groups documents by source and returns routing segments ordered by
// source key, then segment index. Sources whose cleaned text is empty
// produce no segments; they are simply unroutable, not an error.
func (b *RoutingBuilder) Build(docs []corpus.Document) []RoutingSegment {
	bySource := make(map[string][]corpus.Document)
	display := make(map[string]string)
	var order []string
	for _, doc := range docs {
		if _, seen := bySource[doc.SourceKey]; !seen {
			order = append(order, doc.SourceKey)
			display[doc.SourceKey] = doc.Source
		}
		bySource[doc.SourceKey] = append(bySource[doc.SourceKey], doc)
	}
	sort.Strings(order)

	var segments []RoutingSegment
	for _, key := range order {
		pages := bySource[key]
		sort.SliceStable(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })

		cleaned := b.cleanSource(pages)
		if cleaned == "" {
			continue
		}

		pieces := b.segment(cleaned)
		for i, piece := range pieces {
			segments = append(segments, RoutingSegment{
				Source:       display[key],
				SourceKey:    key,
				SegmentIndex: i,
				SegmentCount: len(pieces),
				Text:         piece,
			})
		}
	}
	return segments
}

// cleanSource merges the leading pages of one source and strips the parts
// that hurt routing: everything from a standalone References heading on,
// boilerplate/copyright lines, and stray page-marker lines.
func (b *RoutingBuilder) cleanSource(pages []corpus.Document) string {
	limit := len(pages)
	if b.MaxPages > 0 && limit > b.MaxPages {
		limit = b.MaxPages
	}

	var parts []string
	for _, page := range pages[:limit] {
		parts = append(parts, NormalizeText(page.Text))
	}
	merged := strings.Join(parts, "\n\n")

	if loc := referencesHeading.FindStringIndex(merged); loc != nil {
		merged = merged[:loc[0]]
	}

	var kept []string
	for _, line := range strings.Split(merged, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && (boilerplateLine.MatchString(trimmed) || pageMarkerLine.MatchString(trimmed)) {
			continue
		}
		kept = append(kept, line)
	}
	merged = NormalizeText(strings.Join(kept, "\n"))

	if b.MaxSourceChars > 0 {
		runes := []rune(merged)
		if len(runes) > b.MaxSourceChars {
			merged = string(runes[:b.MaxSourceChars])
		}
	}
	return strings.TrimSpace(merged)
}

// segment cuts cleaned text into fixed-size overlapping windows with the
// same overlap clamping rule as the chunk splitter.
func (b *RoutingBuilder) segment(text string) []string {
	size := b.SegmentChars
	if size < 1 {
		size = 1
	}
	overlap := b.SegmentOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	runes := []rune(text)
	step := size - overlap
	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return pieces
}
