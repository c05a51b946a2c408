package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/askrepo/askrepo/internal/config"
)

// Engine answers search queries for a loaded repository. With an embedder
// and a built index it does semantic search; otherwise it falls back to
// keyword scanning. Safe for concurrent use.
type Engine struct {
	cfg      config.SearchConfig
	chunker  *Chunker
	embedder Embedder
	store    *VectorStore

	mu      sync.RWMutex
	indexed bool
}

// NewEngine builds an engine. embedder and store may be nil, in which case
// only keyword search is available.
func NewEngine(cfg config.SearchConfig, textExts []string, embedder Embedder, store *VectorStore) *Engine {
	return &Engine{
		cfg:      cfg,
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MaxIndexFiles, textExts),
		embedder: embedder,
		store:    store,
	}
}

// SemanticAvailable reports whether the semantic path can serve queries.
func (e *Engine) SemanticAvailable() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.embedder != nil && e.store != nil && e.indexed
}

// Index chunks the checkout, embeds the chunks and stores them. Returns the
// number of chunks indexed. Any previously indexed repository is dropped
// first, so a failed or empty indexing run leaves only keyword search.
func (e *Engine) Index(ctx context.Context, root string) (int, error) {
	if e.embedder == nil || e.store == nil {
		return 0, fmt.Errorf("semantic indexing is not configured")
	}

	e.mu.Lock()
	e.indexed = false
	e.mu.Unlock()
	if err := e.store.Reset(); err != nil {
		return 0, fmt.Errorf("resetting index: %w", err)
	}

	chunks, err := e.chunker.ChunkRepo(root)
	if err != nil {
		return 0, fmt.Errorf("chunking repository: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := e.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	if err := e.store.StoreChunks(chunks, vectors); err != nil {
		return 0, fmt.Errorf("storing index: %w", err)
	}

	e.mu.Lock()
	e.indexed = true
	e.mu.Unlock()
	slog.Info("repository indexed", "chunks", len(chunks))
	return len(chunks), nil
}

// Search runs a query against the checkout at root. limit <= 0 uses the
// configured default.
func (e *Engine) Search(ctx context.Context, root, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	if e.SemanticAvailable() {
		results, err := e.semanticSearch(ctx, query, limit)
		if err == nil {
			return results, nil
		}
		slog.Warn("semantic search failed, falling back to keyword", "error", err)
	}
	return e.chunker.KeywordSearch(root, query, limit)
}

func (e *Engine) semanticSearch(ctx context.Context, query string, limit int) ([]Result, error) {
	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return e.store.Query(ctx, vectors[0], limit)
}
