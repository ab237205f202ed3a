package mock

import (
	"context"

	"docqa/internal/ai"
)

var _ ai.Generator = (*Generator)(nil)

// Generator is a mock implementation of ai.Generator.
type Generator struct {
	NameFn     func() string
	GenerateFn func(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

func (g *Generator) Name() string {
	return g.NameFn()
}

func (g *Generator) Generate(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	return g.GenerateFn(ctx, messages)
}

var _ ai.StreamGenerator = (*StreamGenerator)(nil)

// StreamGenerator is a mock implementation of ai.StreamGenerator.
type StreamGenerator struct {
	Generator
	StreamFn func(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

func (g *StreamGenerator) Stream(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error) {
	return g.StreamFn(ctx, messages, onChunk)
}
