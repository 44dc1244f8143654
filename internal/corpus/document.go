package corpus

// Document is the raw text of one page of a source document plus the
// metadata needed to trace chunks back to it. Documents are created once by
// the loader and never mutated afterwards.
type Document struct {
	// Source is the human-readable display name (the corpus file name).
	Source string
	// SourceKey is SourceKey(Source), stamped at load time.
	SourceKey string
	// Page is the zero-based page index within the source.
	Page int
	// Text is the raw extracted page text.
	Text string
}
