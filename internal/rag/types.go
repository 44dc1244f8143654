package rag

// AskRequest represents a question against the ingested corpus.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K optionally overrides the configured top-k chunk count.
	K int `json:"k,omitempty"`
}

// Citation points at one context block used to build the answer.
type Citation struct {
	// Source is the display name of the cited document.
	Source string `json:"source"`
	// Page is the zero-based page index, or -1 when unknown.
	Page int `json:"page"`
	// ChunkID is the ingestion-run chunk identifier.
	ChunkID int64 `json:"chunk_id"`
}

// StructuredAnswer is the structured-mode response contract.
type StructuredAnswer struct {
	Definition   string   `json:"definition"`
	WhyItMatters string   `json:"why_it_matters"`
	Components   []string `json:"components"`
	CitedChunks  []string `json:"cited_chunks"`
}

// AskResponse is the answer structure returned for every query. The caller
// always receives a well-formed response; "I don't know" is a schema-valid
// answer, not an error path.
type AskResponse struct {
	// Answer is the free-text answer (free-text mode) or the structured
	// answer's definition (structured mode).
	Answer string `json:"answer"`
	// Structured carries the validated structured answer in structured mode.
	Structured *StructuredAnswer `json:"structured,omitempty"`
	// Citations lists the context blocks behind the answer.
	Citations []Citation `json:"citations"`
	// Snippets are short whitespace-collapsed previews, parallel to Citations.
	Snippets []string `json:"snippets"`
	// RoutedSources are the display names of documents routing selected.
	RoutedSources []string `json:"routed_sources"`
	// RoutingUsed reports whether the answer context was restricted to the
	// routed documents; false means the pipeline fell back to unfiltered
	// similarity candidates.
	RoutingUsed bool `json:"routing_used"`
	// Strategy names the retrieval strategy that produced the context.
	Strategy string `json:"strategy"`
}
