package rag

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/model"
)

const (
	DefaultTopK          = 3
	DefaultMinSimilarity = 0.3
)

type ChunkStore interface {
	ListByEmbeddingModel(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error)
}

type Match struct {
	Chunk model.DocumentChunk
	Score float64
}

type Source struct {
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

func (s Source) String() string {
	return fmt.Sprintf("%s (similarity: %.2f)", s.Filename, s.Similarity)
}

// RetrievedContext is the document text handed to the generator together with
// where it came from. Context is empty when nothing cleared the threshold.
type RetrievedContext struct {
	Context string
	Sources []Source
	Matches []Match
}

// Retriever runs a linear cosine scan over stored chunks. The query is embedded
// with the main embedder and with every secondary embedder so chunks stored
// under a fallback model stay searchable.
type Retriever struct {
	store     ChunkStore
	embedder  Embedder
	secondary []Embedder

	TopK          int
	MinSimilarity float64
}

func NewRetriever(store ChunkStore, embedder Embedder, secondary ...Embedder) *Retriever {
	return &Retriever{
		store:         store,
		embedder:      embedder,
		secondary:     secondary,
		TopK:          DefaultTopK,
		MinSimilarity: DefaultMinSimilarity,
	}
}

// Search returns the topK best matches regardless of the similarity threshold.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = r.TopK
	}

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	queries := []Vector{qv}
	for _, e := range r.secondary {
		if e.Name() == qv.Model {
			continue
		}
		v, err := e.Embed(ctx, query)
		if err != nil {
			continue
		}
		queries = append(queries, v)
	}

	var matches []Match
	seen := make(map[string]bool, len(queries))
	for _, q := range queries {
		if seen[q.Model] {
			continue
		}
		seen[q.Model] = true

		chunks, err := r.store.ListByEmbeddingModel(ctx, q.Model)
		if err != nil {
			return nil, err
		}
		for _, c := range chunks {
			values, err := DecodeVector(c.Embedding)
			if err != nil {
				continue
			}
			matches = append(matches, Match{Chunk: c, Score: CosineSimilarity(q.Values, values)})
		}
	}
	return TopK(matches, topK), nil
}

// RelevantContext keeps only matches scoring above MinSimilarity and joins
// their content with blank lines.
func (r *Retriever) RelevantContext(ctx context.Context, query string, topK int) (RetrievedContext, error) {
	matches, err := r.Search(ctx, query, topK)
	if err != nil {
		return RetrievedContext{}, err
	}

	var (
		parts []string
		out   RetrievedContext
	)
	for _, m := range matches {
		if m.Score <= r.MinSimilarity {
			continue
		}
		parts = append(parts, m.Chunk.Content)
		out.Matches = append(out.Matches, m)
		out.Sources = append(out.Sources, Source{
			Filename:   m.Chunk.Filename,
			ChunkIndex: m.Chunk.ChunkIndex,
			Similarity: m.Score,
		})
	}
	out.Context = strings.Join(parts, "\n\n")
	return out, nil
}
