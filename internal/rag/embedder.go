package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Vector is an embedding tagged with the embedder that produced it. Vectors
// from different embedders are never compared.
type Vector struct {
	Model  string
	Values []float32
}

type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) (Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

const DefaultHashDims = 384

// hashWordLimit caps how many words contribute to the bag-of-words slots.
const hashWordLimit = 50

// HashEmbedder is a deterministic embedding used when no embedding model is
// reachable. Slot 0 holds the normalized word count, slot 1 the normalized
// character count, and the remaining slots a hashed bag of words.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	if dims < 3 {
		dims = DefaultHashDims
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Name() string {
	return fmt.Sprintf("hash-%d", e.dims)
}

func (e *HashEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	return Vector{Model: e.Name(), Values: e.vector(text)}, nil
}

func (e *HashEmbedder) EmbedBatch(_ context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i, text := range texts {
		out[i] = Vector{Model: e.Name(), Values: e.vector(text)}
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return v
	}

	v[0] = min(float32(len(words))/100, 1)
	v[1] = min(float32(len([]rune(text)))/1000, 1)

	slots := uint64(e.dims - 2)
	weight := 1 / float32(len(words))
	for i, word := range words {
		if i >= hashWordLimit {
			break
		}
		v[2+xxhash.Sum64String(word)%slots] += weight
	}
	return v
}

// FallbackEmbedder uses Primary and switches to Fallback for any call the
// primary fails.
type FallbackEmbedder struct {
	Primary  Embedder
	Fallback Embedder
	Logger   *slog.Logger
}

func NewFallbackEmbedder(primary, fallback Embedder, logger *slog.Logger) *FallbackEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEmbedder{Primary: primary, Fallback: fallback, Logger: logger}
}

func (e *FallbackEmbedder) Name() string {
	if e.Primary != nil {
		return e.Primary.Name()
	}
	return e.Fallback.Name()
}

func (e *FallbackEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if e.Primary != nil {
		v, err := e.Primary.Embed(ctx, text)
		if err == nil {
			return v, nil
		}
		e.Logger.Warn("primary embedder failed, using fallback",
			"primary", e.Primary.Name(), "fallback", e.Fallback.Name(), "err", err)
	}
	return e.Fallback.Embed(ctx, text)
}

func (e *FallbackEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if e.Primary != nil {
		vs, err := e.Primary.EmbedBatch(ctx, texts)
		if err == nil {
			return vs, nil
		}
		e.Logger.Warn("primary embedder failed, using fallback",
			"primary", e.Primary.Name(), "fallback", e.Fallback.Name(), "texts", len(texts), "err", err)
	}
	return e.Fallback.EmbedBatch(ctx, texts)
}
