package rag

import (
	"encoding/json"
	"strings"
)

// fallbackAnswer is the structured answer returned whenever the model's
// output cannot be trusted: malformed JSON, unsupported claims, or
// over-citation.
func fallbackAnswer() *StructuredAnswer {
	return &StructuredAnswer{
		Definition:   RefusalAnswer,
		WhyItMatters: unknownField,
		Components:   []string{},
		CitedChunks:  []string{},
	}
}

// maxComponents bounds the components list before it is considered noise.
const maxComponents = 5

// validateStructured turns raw model output into a strict StructuredAnswer.
// It is total: every input, however malformed, yields a usable answer.
//
// Enforcement order:
//  1. Extract and parse the first top-level JSON object; failure ⇒ fallback.
//  2. String fields default to "unknown" when missing or mistyped.
//  3. components is clamped: more than maxComponents ⇒ emptied.
//  4. cited_chunks is filtered to labels present among the context blocks,
//     then clamped to maxCitations.
//  5. A non-refusal answer with more than maxCitations raw citations, or
//     with zero valid citations after filtering, is replaced wholesale by
//     the fallback: unsupported answers must not be surfaced as confident.
func validateStructured(raw string, blocks []contextBlock, maxCitations int) *StructuredAnswer {
	obj := extractJSONObject(raw)
	if obj == "" {
		return fallbackAnswer()
	}

	var loose struct {
		Definition   any `json:"definition"`
		WhyItMatters any `json:"why_it_matters"`
		Components   any `json:"components"`
		CitedChunks  any `json:"cited_chunks"`
	}
	if err := json.Unmarshal([]byte(obj), &loose); err != nil {
		return fallbackAnswer()
	}

	answer := &StructuredAnswer{
		Definition:   stringOrUnknown(loose.Definition),
		WhyItMatters: stringOrUnknown(loose.WhyItMatters),
		Components:   stringList(loose.Components),
		CitedChunks:  stringList(loose.CitedChunks),
	}

	if len(answer.Components) > maxComponents {
		answer.Components = []string{}
	}

	known := make(map[string]struct{}, len(blocks))
	for _, block := range blocks {
		known[block.Label] = struct{}{}
	}

	rawCitations := len(answer.CitedChunks)
	valid := make([]string, 0, rawCitations)
	for _, label := range answer.CitedChunks {
		if _, ok := known[strings.TrimSpace(label)]; ok {
			valid = append(valid, strings.TrimSpace(label))
		}
	}
	if len(valid) > maxCitations {
		valid = valid[:maxCitations]
	}
	answer.CitedChunks = valid

	isRefusal := strings.TrimSpace(answer.Definition) == RefusalAnswer
	if !isRefusal {
		// Over-citation signals an ungrounded answer; so does an answer
		// with no surviving citations at all.
		if rawCitations > maxCitations || len(valid) == 0 {
			return fallbackAnswer()
		}
	}

	return answer
}

// extractJSONObject returns the first balanced top-level JSON object in raw,
// tolerating leading and trailing prose. Braces inside JSON strings are
// ignored. Returns "" when no balanced object exists.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

func stringOrUnknown(v any) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return unknownField
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
