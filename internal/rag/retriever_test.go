package rag_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/mock"
	"docqa/internal/model"
	"docqa/internal/rag"
)

// fixedEmbedder maps known texts to fixed vectors.
func fixedEmbedder(name string, vectors map[string][]float32) *mock.Embedder {
	return &mock.Embedder{
		NameFn: func() string { return name },
		EmbedFn: func(ctx context.Context, text string) (rag.Vector, error) {
			v, ok := vectors[text]
			if !ok {
				return rag.Vector{}, errors.New("unknown text")
			}
			return rag.Vector{Model: name, Values: v}, nil
		},
	}
}

func chunk(filename string, index int, content, embeddingModel string, v []float32) model.DocumentChunk {
	return model.DocumentChunk{
		Filename:       filename,
		ChunkIndex:     index,
		Content:        content,
		EmbeddingModel: embeddingModel,
		Embedding:      rag.EncodeVector(v),
	}
}

func TestRetriever_RelevantContext(t *testing.T) {
	t.Parallel()

	chunks := map[string][]model.DocumentChunk{
		"m": {
			chunk("a.txt", 0, "exact", "m", []float32{1, 0}),
			chunk("a.txt", 1, "close", "m", []float32{1, 1}),
			chunk("b.txt", 0, "orthogonal", "m", []float32{0, 1}),
			chunk("b.txt", 1, "broken", "m", nil),
		},
	}
	store := &mock.ChunkStore{
		ListByEmbeddingModelFn: func(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error) {
			return chunks[embeddingModel], nil
		},
	}
	r := rag.NewRetriever(store, fixedEmbedder("m", map[string][]float32{"q": {1, 0}}))

	got, err := r.RelevantContext(context.Background(), "q", 0)
	require.NoError(t, err)

	assert.Equal(t, "exact\n\nclose", got.Context)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, "a.txt", got.Sources[0].Filename)
	assert.InDelta(t, 1.0, got.Sources[0].Similarity, 1e-9)
	assert.Equal(t, 1, got.Sources[1].ChunkIndex)
	assert.Equal(t, "a.txt (similarity: 0.71)", got.Sources[1].String())
}

func TestRetriever_ThresholdIsExclusive(t *testing.T) {
	t.Parallel()

	store := &mock.ChunkStore{
		ListByEmbeddingModelFn: func(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error) {
			return []model.DocumentChunk{chunk("a.txt", 0, "half", "m", []float32{1, 1})}, nil
		},
	}
	r := rag.NewRetriever(store, fixedEmbedder("m", map[string][]float32{"q": {1, 0}}))

	r.MinSimilarity = 0.8
	got, err := r.RelevantContext(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Empty(t, got.Context)
	assert.Empty(t, got.Sources)

	matches, err := r.Search(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestRetriever_SearchesSecondaryModels(t *testing.T) {
	t.Parallel()

	var listed []string
	store := &mock.ChunkStore{
		ListByEmbeddingModelFn: func(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error) {
			listed = append(listed, embeddingModel)
			switch embeddingModel {
			case "remote":
				return []model.DocumentChunk{chunk("r.txt", 0, "remote chunk", "remote", []float32{0.5, 0.5})}, nil
			case "hash":
				return []model.DocumentChunk{chunk("h.txt", 0, "hash chunk", "hash", []float32{0, 1})}, nil
			}
			return nil, nil
		},
	}
	r := rag.NewRetriever(store,
		fixedEmbedder("remote", map[string][]float32{"q": {1, 0}}),
		fixedEmbedder("hash", map[string][]float32{"q": {0, 1}}),
		fixedEmbedder("remote", map[string][]float32{"q": {1, 0}}),
	)

	got, err := r.RelevantContext(context.Background(), "q", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"remote", "hash"}, listed)
	assert.Equal(t, "hash chunk\n\nremote chunk", got.Context)
}

func TestRetriever_Errors(t *testing.T) {
	t.Parallel()

	t.Run("query embedding failure", func(t *testing.T) {
		t.Parallel()

		r := rag.NewRetriever(&mock.ChunkStore{}, fixedEmbedder("m", nil))
		_, err := r.RelevantContext(context.Background(), "q", 3)
		require.Error(t, err)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		store := &mock.ChunkStore{
			ListByEmbeddingModelFn: func(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error) {
				return nil, errors.New("db down")
			},
		}
		r := rag.NewRetriever(store, fixedEmbedder("m", map[string][]float32{"q": {1}}))
		_, err := r.Search(context.Background(), "q", 3)
		require.EqualError(t, err, "db down")
	})
}
