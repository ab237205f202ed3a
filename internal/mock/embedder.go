package mock

import (
	"context"

	"docqa/internal/model"
	"docqa/internal/rag"
)

var _ rag.Embedder = (*Embedder)(nil)

// Embedder is a mock implementation of rag.Embedder.
type Embedder struct {
	NameFn       func() string
	EmbedFn      func(ctx context.Context, text string) (rag.Vector, error)
	EmbedBatchFn func(ctx context.Context, texts []string) ([]rag.Vector, error)
}

func (e *Embedder) Name() string {
	return e.NameFn()
}

func (e *Embedder) Embed(ctx context.Context, text string) (rag.Vector, error) {
	return e.EmbedFn(ctx, text)
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([]rag.Vector, error) {
	return e.EmbedBatchFn(ctx, texts)
}

var _ rag.ChunkStore = (*ChunkStore)(nil)

// ChunkStore is a mock implementation of rag.ChunkStore.
type ChunkStore struct {
	ListByEmbeddingModelFn func(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error)
}

func (s *ChunkStore) ListByEmbeddingModel(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error) {
	return s.ListByEmbeddingModelFn(ctx, embeddingModel)
}
