package rag

import (
	"fmt"
	"strings"
)

const snippetMaxRunes = 160

// candidate is one retrieved chunk before deduplication and budgeting.
type candidate struct {
	ChunkID   int64
	Source    string
	SourceKey string
	Page      int
	Text      string
}

// contextBlock is one formatted block admitted into the context window.
type contextBlock struct {
	// Label is the chunk label ("chunk-<id>") structured citations refer to.
	Label    string
	Citation Citation
	Snippet  string
	// Formatted is the full block as sent to the model.
	Formatted string
}

// chunkLabel renders the label a structured answer cites a block by.
func chunkLabel(chunkID int64) string {
	return fmt.Sprintf("chunk-%d", chunkID)
}

// formatBlock renders one context block: source name, page, chunk label,
// then the raw chunk text.
func formatBlock(cand candidate) string {
	page := "?"
	if cand.Page >= 0 {
		page = fmt.Sprintf("%d", cand.Page)
	}
	return fmt.Sprintf("[%s p.%s] (%s)\n%s", cand.Source, page, chunkLabel(cand.ChunkID), cand.Text)
}

// assembleContext packs candidates in rank order into a context window of at
// most budget runes. A block that would push the window over budget is
// excluded whole, never truncated.
func assembleContext(candidates []candidate, budget int) (string, []contextBlock) {
	var blocks []contextBlock
	var builder strings.Builder
	used := 0

	for _, cand := range candidates {
		formatted := formatBlock(cand)
		cost := len([]rune(formatted))
		if len(blocks) > 0 {
			cost += 2 // separating blank line
		}
		if budget > 0 && used+cost > budget {
			break
		}

		if len(blocks) > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(formatted)
		used += cost

		blocks = append(blocks, contextBlock{
			Label: chunkLabel(cand.ChunkID),
			Citation: Citation{
				Source:  cand.Source,
				Page:    cand.Page,
				ChunkID: cand.ChunkID,
			},
			Snippet:   snippet(cand.Text),
			Formatted: formatted,
		})
	}

	return builder.String(), blocks
}

// snippet collapses whitespace and trims the text to a short preview.
func snippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= snippetMaxRunes {
		return collapsed
	}
	return string(runes[:snippetMaxRunes]) + "..."
}
