package indexer

import (
	"strings"

	"corpusqa/internal/corpus"
)

// Splitter is a recursive boundary-preferring text splitter with overlap.
// It tries paragraph breaks first, then line breaks, then sentence ends,
// then spaces, then raw runes, each pass bounded by Size runes with Overlap
// runes carried between consecutive output pieces.
type Splitter struct {
	Size    int
	Overlap int
}

// separators in preference order. The empty string means "split anywhere".
var splitSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// NewSplitter creates a splitter, clamping overlap into [0, size) so the
// step size never drops below one rune.
func NewSplitter(size, overlap int) *Splitter {
	if size < 1 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	return &Splitter{Size: size, Overlap: overlap}
}

// Split splits text into pieces of at most Size runes, preferring the
// earliest separator in splitSeparators that produces in-bound pieces.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := s.split(text, 0)
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
	}
	return out
}

func (s *Splitter) split(text string, sepIdx int) []string {
	if len([]rune(text)) <= s.Size {
		return []string{text}
	}
	if sepIdx >= len(splitSeparators) || splitSeparators[sepIdx] == "" {
		return s.hardSplit(text)
	}

	sep := splitSeparators[sepIdx]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		return s.split(text, sepIdx+1)
	}

	// Reattach the separator so merged output reads like the original.
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += sep
	}

	// In-budget parts merge greedily with overlap. An oversized part is
	// split at the next separator level and its pieces pass through
	// unchanged: re-merging them would duplicate the carried overlap.
	var pieces []string
	var pending []string
	for _, part := range parts {
		if len([]rune(part)) > s.Size {
			pieces = append(pieces, s.mergeWithOverlap(pending)...)
			pending = nil
			pieces = append(pieces, s.split(part, sepIdx+1)...)
			continue
		}
		pending = append(pending, part)
	}
	return append(pieces, s.mergeWithOverlap(pending)...)
}

// mergeWithOverlap greedily packs atoms into pieces of at most Size runes.
// Each flush carries the trailing Overlap runes of the finished piece into
// the next one, trimmed so the next piece stays within Size. Atoms must
// already be within Size runes.
func (s *Splitter) mergeWithOverlap(atoms []string) []string {
	var pieces []string
	var current []rune

	for _, atom := range atoms {
		runes := []rune(atom)
		if len(runes) == 0 {
			continue
		}
		if len(current) > 0 && len(current)+len(runes) > s.Size {
			pieces = append(pieces, string(current))
			tail := s.Overlap
			if tail > s.Size-len(runes) {
				tail = s.Size - len(runes)
			}
			if tail > len(current) {
				tail = len(current)
			}
			current = append([]rune(nil), current[len(current)-tail:]...)
		}
		current = append(current, runes...)
	}
	if len(current) > 0 {
		pieces = append(pieces, string(current))
	}
	return pieces
}

// hardSplit cuts text into Size-rune windows stepping by Size-Overlap.
func (s *Splitter) hardSplit(text string) []string {
	runes := []rune(text)
	step := s.Size - s.Overlap
	if step < 1 {
		step = 1
	}
	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return pieces
}

// Chunker turns corpus pages into retrieval chunks: blocks are classified,
// non-prose blocks are kept whole, prose is split with overlap, and every
// chunk gets the next ID from the run's sequence.
type Chunker struct {
	splitter *Splitter
}

// NewChunker creates a chunker with the given prose chunk size and overlap.
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{splitter: NewSplitter(size, overlap)}
}

// ChunkDocuments processes pages in order and returns chunks in emission
// order. Pages that are empty after normalization are skipped. Output is
// deterministic for identical input and configuration.
func (c *Chunker) ChunkDocuments(docs []corpus.Document, seq *Sequence) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		normalized := NormalizeText(doc.Text)
		if normalized == "" {
			continue
		}
		for _, block := range SplitBlocks(normalized) {
			blockType := ClassifyBlock(block)
			if blockType != BlockText {
				// Tables, code, equations and captions lose meaning when
				// split, so they stay intact regardless of size.
				chunks = append(chunks, c.newChunk(doc, blockType, block, seq))
				continue
			}
			for _, piece := range c.splitter.Split(block) {
				chunks = append(chunks, c.newChunk(doc, BlockText, piece, seq))
			}
		}
	}
	return chunks
}

func (c *Chunker) newChunk(doc corpus.Document, blockType BlockType, text string, seq *Sequence) Chunk {
	return Chunk{
		ChunkID:   seq.Next(),
		Source:    doc.Source,
		SourceKey: doc.SourceKey,
		Page:      doc.Page,
		BlockType: blockType,
		Text:      text,
	}
}
