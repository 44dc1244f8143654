package rag

import (
	"context"
	"fmt"
	"strings"

	"corpusqa/internal/contextutil"
	"corpusqa/internal/llm"
	"corpusqa/internal/service"
	"corpusqa/internal/storage"
	"corpusqa/internal/vectorstore"
)

// Answer modes.
const (
	ModeText       = "text"
	ModeStructured = "structured"
)

// Retrieval strategy tags, tried in order until one yields candidates.
const (
	strategyRoutedSimilarity = "routed-similarity"
	strategyRoutedScan       = "routed-scan"
	strategyUnfiltered       = "unfiltered"
)

// Embedder turns texts into query vectors. *llm.EmbeddingsClient satisfies it.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer is the external completion service. *llm.Client satisfies it.
type Completer interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// Options configure the query pipeline.
type Options struct {
	// ChunkCollection / RoutingCollection name the two vector collections.
	ChunkCollection   string
	RoutingCollection string
	// TopK is the default chunk count a query ultimately uses.
	TopK int
	// ChunkFetchK is the broad candidate count fetched before filtering;
	// intentionally much larger than TopK so the routed filter has material.
	ChunkFetchK int
	// DocRouteTopN is how many routing hits Stage A requests.
	DocRouteTopN int
	// ContextBudget is the maximum context window size in runes.
	ContextBudget int
	// MaxCitations bounds structured-mode citations.
	MaxCitations int
	// Mode selects the response contract: ModeText or ModeStructured.
	Mode string
}

// Engine answers questions against the ingested corpus.
type Engine interface {
	// Ask routes the question to candidate documents, retrieves and filters
	// chunks, assembles a bounded context and generates a validated answer.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// ragEngine implements the Engine interface. It is stateless across queries
// and safe for concurrent use: both indexes are read-only after ingestion.
type ragEngine struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	llmClient   Completer
	opts        Options
}

// NewEngine creates a query engine over the two indexes.
func NewEngine(
	embedder Embedder,
	vectorStore vectorstore.VectorStore,
	chunkRepo storage.ChunkStore,
	llmClient Completer,
	opts Options,
) Engine {
	if opts.TopK < 1 {
		opts.TopK = 8
	}
	if opts.ChunkFetchK < opts.TopK {
		opts.ChunkFetchK = opts.TopK * 5
	}
	if opts.DocRouteTopN < 1 {
		opts.DocRouteTopN = 4
	}
	if opts.ContextBudget < 1 {
		opts.ContextBudget = 12000
	}
	if opts.MaxCitations < 1 {
		opts.MaxCitations = 3
	}
	if opts.Mode == "" {
		opts.Mode = ModeText
	}
	return &ragEngine{
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		llmClient:   llmClient,
		opts:        opts,
	}
}

// Ask answers a question. Absence of retrievable content yields the refusal
// answer, never an error; only external service failures propagate.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return AskResponse{}, fmt.Errorf("%w: question is empty", service.ErrInvalidInput)
	}

	topK := e.opts.TopK
	if req.K > 0 {
		topK = req.K
	}

	logger.InfoContext(ctx, "query started", "question", question, "top_k", topK, "mode", e.opts.Mode)

	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return AskResponse{}, fmt.Errorf("%w: failed to embed question: %v", service.ErrExternalService, err)
	}
	if len(vectors) == 0 {
		return AskResponse{}, fmt.Errorf("%w: no embedding returned for question", service.ErrExternalService)
	}
	queryVector := vectors[0]

	// Stage A: route the question to a bounded set of documents.
	routedKeys, routedNames, err := e.routeDocuments(ctx, queryVector)
	if err != nil {
		return AskResponse{}, err
	}
	logger.InfoContext(ctx, "documents routed", "routed_keys", routedKeys)

	// Stage B: broad chunk retrieval, then the filter cascade.
	broad, err := e.vectorStore.Search(ctx, e.opts.ChunkCollection, queryVector, e.opts.ChunkFetchK, nil)
	if err != nil {
		return AskResponse{}, fmt.Errorf("%w: chunk search failed: %v", service.ErrStoreUnavailable, err)
	}

	candidates, routingUsed, strategy, err := e.runCascade(ctx, queryVector, broad, routedKeys, topK)
	if err != nil {
		return AskResponse{}, err
	}
	logger.InfoContext(ctx, "retrieval complete",
		"strategy", strategy, "routing_used", routingUsed, "candidates", len(candidates))

	deduped := dedupeCandidates(candidates)
	contextText, blocks := assembleContext(deduped, e.opts.ContextBudget)
	logger.InfoContext(ctx, "context assembled",
		"blocks", len(blocks), "context_runes", len([]rune(contextText)))

	resp := AskResponse{
		Citations:     []Citation{},
		Snippets:      []string{},
		RoutedSources: routedNames,
		RoutingUsed:   routingUsed,
		Strategy:      strategy,
	}

	if len(blocks) == 0 {
		resp.Answer = RefusalAnswer
		if e.opts.Mode == ModeStructured {
			resp.Structured = fallbackAnswer()
		}
		logger.InfoContext(ctx, "no context available, refusing")
		return resp, nil
	}

	raw, err := e.generate(ctx, question, contextText)
	if err != nil {
		return AskResponse{}, fmt.Errorf("%w: completion failed: %v", service.ErrExternalService, err)
	}

	if e.opts.Mode == ModeStructured {
		structured := validateStructured(raw, blocks, e.opts.MaxCitations)
		resp.Structured = structured
		resp.Answer = structured.Definition
		for _, label := range structured.CitedChunks {
			for _, block := range blocks {
				if block.Label == label {
					resp.Citations = append(resp.Citations, block.Citation)
					resp.Snippets = append(resp.Snippets, block.Snippet)
					break
				}
			}
		}
	} else {
		resp.Answer = raw
		for _, block := range blocks {
			resp.Citations = append(resp.Citations, block.Citation)
			resp.Snippets = append(resp.Snippets, block.Snippet)
		}
	}

	logger.InfoContext(ctx, "query completed",
		"answer_length", len(resp.Answer), "citations", len(resp.Citations), "strategy", strategy)
	return resp, nil
}

// routeDocuments runs Stage A: nearest-neighbor search over the routing
// index, extracting an ordered, deduplicated set of source keys. Hits
// lacking a source_key signal a malformed routing index and are dropped so
// routing degrades instead of failing.
func (e *ragEngine) routeDocuments(ctx context.Context, queryVector []float32) ([]string, []string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	hits, err := e.vectorStore.Search(ctx, e.opts.RoutingCollection, queryVector, e.opts.DocRouteTopN, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: routing search failed: %v", service.ErrStoreUnavailable, err)
	}

	seen := make(map[string]struct{}, len(hits))
	keys := make([]string, 0, len(hits))
	names := make([]string, 0, len(hits))
	for _, hit := range hits {
		key, _ := hit.Meta["source_key"].(string)
		if key == "" {
			logger.WarnContext(ctx, "routing hit missing source_key, dropping", "point_id", hit.PointID)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)

		name, _ := hit.Meta["source"].(string)
		if name == "" {
			name = key
		}
		names = append(names, name)
	}
	return keys, names, nil
}

// runCascade tries the ordered retrieval strategies until one yields
// candidates. It always terminates with a usable (possibly empty) list and
// an explicit routing-used flag.
func (e *ragEngine) runCascade(ctx context.Context, queryVector []float32, broad []vectorstore.SearchResult, routedKeys []string, topK int) ([]candidate, bool, string, error) {
	routed := make(map[string]struct{}, len(routedKeys))
	for _, key := range routedKeys {
		routed[key] = struct{}{}
	}

	// Strategy 1: broad similarity candidates filtered to routed sources,
	// similarity order preserved.
	var filtered []candidate
	for _, result := range broad {
		if len(filtered) >= topK {
			break
		}
		key, _ := result.Meta["source_key"].(string)
		if _, ok := routed[key]; !ok {
			continue
		}
		if cand, ok := e.resolveCandidate(ctx, result); ok {
			filtered = append(filtered, cand)
		}
	}
	if len(filtered) > 0 {
		return filtered, true, strategyRoutedSimilarity, nil
	}

	// Strategy 2: similarity search constrained to the routed sources inside
	// the vector store. The broad fetch can miss every routed chunk when the
	// corpus is large; a store-side filter searches the routed documents
	// exhaustively.
	if len(routedKeys) > 0 {
		narrow, err := e.vectorStore.Search(ctx, e.opts.ChunkCollection, queryVector, topK,
			&vectorstore.Filter{SourceKeys: routedKeys})
		if err != nil {
			return nil, false, "", fmt.Errorf("%w: filtered chunk search failed: %v", service.ErrStoreUnavailable, err)
		}
		var narrowed []candidate
		for _, result := range narrow {
			if len(narrowed) >= topK {
				break
			}
			if cand, ok := e.resolveCandidate(ctx, result); ok {
				narrowed = append(narrowed, cand)
			}
		}
		if len(narrowed) > 0 {
			return narrowed, true, strategyRoutedSimilarity, nil
		}
	}

	// Strategy 3: membership scan of the chunk store, bypassing similarity
	// entirely. Covers routed documents whose vectors are missing or whose
	// hits fail to resolve against the payload store.
	if len(routedKeys) > 0 {
		records, err := e.chunkRepo.ListBySourceKeys(ctx, routedKeys, 3*topK)
		if err != nil {
			return nil, false, "", fmt.Errorf("%w: chunk scan failed: %v", service.ErrStoreUnavailable, err)
		}
		if len(records) > 0 {
			scanned := make([]candidate, 0, len(records))
			for _, record := range records {
				scanned = append(scanned, candidate{
					ChunkID:   record.ChunkID,
					Source:    record.Source,
					SourceKey: record.SourceKey,
					Page:      record.Page,
					Text:      record.Text,
				})
			}
			return scanned, true, strategyRoutedScan, nil
		}
	}

	// Strategy 4: unfiltered top-k similarity candidates; the response is
	// marked as not routing-assisted.
	var unfiltered []candidate
	for _, result := range broad {
		if len(unfiltered) >= topK {
			break
		}
		if cand, ok := e.resolveCandidate(ctx, result); ok {
			unfiltered = append(unfiltered, cand)
		}
	}
	return unfiltered, false, strategyUnfiltered, nil
}

// resolveCandidate turns a search hit into a candidate, fetching the chunk
// text from the payload store. Hits whose payload row is missing are
// skipped rather than failing the query.
func (e *ragEngine) resolveCandidate(ctx context.Context, result vectorstore.SearchResult) (candidate, bool) {
	logger := contextutil.LoggerFromContext(ctx)

	record, err := e.chunkRepo.GetByPointID(ctx, result.PointID)
	if err != nil {
		logger.WarnContext(ctx, "failed to fetch chunk payload", "point_id", result.PointID, "error", err)
		return candidate{}, false
	}
	return candidate{
		ChunkID:   record.ChunkID,
		Source:    record.Source,
		SourceKey: record.SourceKey,
		Page:      record.Page,
		Text:      record.Text,
	}, true
}

// generate sends the system instruction, assembled context and question to
// the completion service at temperature 0.
func (e *ragEngine) generate(ctx context.Context, question, contextText string) (string, error) {
	systemPrompt := freeTextSystemPrompt
	if e.opts.Mode == ModeStructured {
		systemPrompt = structuredSystemPrompt
	}

	userPrompt := fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION: %s\nWrite the answer now following the rules.", contextText, question)

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
	return e.llmClient.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: 0})
}
