package logging

import (
	"context"
	"log/slog"
	"time"

	"docqa/internal/ai"
	"docqa/internal/rag"
)

var _ rag.Embedder = (*LoggingEmbedder)(nil)

// LoggingEmbedder wraps an Embedder with debug logging.
type LoggingEmbedder struct {
	next   rag.Embedder
	logger *slog.Logger
}

func NewLoggingEmbedder(next rag.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

func (e *LoggingEmbedder) Name() string {
	return e.next.Name()
}

func (e *LoggingEmbedder) Embed(ctx context.Context, text string) (v rag.Vector, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("embed",
			"model", v.Model,
			"chars", len(text),
			"dims", len(v.Values),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, text)
}

func (e *LoggingEmbedder) EmbedBatch(ctx context.Context, texts []string) (vs []rag.Vector, err error) {
	defer func(begin time.Time) {
		model := e.next.Name()
		if len(vs) > 0 {
			model = vs[0].Model
		}
		e.logger.Info("embed batch",
			"model", model,
			"texts", len(texts),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.EmbedBatch(ctx, texts)
}

var _ ai.StreamGenerator = (*LoggingGenerator)(nil)

// LoggingGenerator wraps a Generator with request logging. Stream falls back
// to a single chunk when the wrapped generator cannot stream.
type LoggingGenerator struct {
	next   ai.Generator
	logger *slog.Logger
}

func NewLoggingGenerator(next ai.Generator, logger *slog.Logger) *LoggingGenerator {
	return &LoggingGenerator{next: next, logger: logger}
}

func (g *LoggingGenerator) Name() string {
	return g.next.Name()
}

func (g *LoggingGenerator) Generate(ctx context.Context, messages []ai.ChatMessage) (answer string, err error) {
	defer func(begin time.Time) {
		g.logger.Info("generate",
			"model", g.next.Name(),
			"messages", len(messages),
			"prompt_chars", promptChars(messages),
			"answer_chars", len(answer),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return g.next.Generate(ctx, messages)
}

func (g *LoggingGenerator) Stream(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (answer string, err error) {
	sg, ok := g.next.(ai.StreamGenerator)
	if !ok {
		answer, err = g.Generate(ctx, messages)
		if err != nil {
			return "", err
		}
		if err := onChunk(answer); err != nil {
			return "", err
		}
		return answer, nil
	}

	chunks := 0
	defer func(begin time.Time) {
		g.logger.Info("generate stream",
			"model", g.next.Name(),
			"messages", len(messages),
			"prompt_chars", promptChars(messages),
			"chunks", chunks,
			"answer_chars", len(answer),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return sg.Stream(ctx, messages, func(chunk string) error {
		chunks++
		return onChunk(chunk)
	})
}

func promptChars(messages []ai.ChatMessage) int {
	n := 0
	for _, m := range messages {
		n += len(m.Content)
	}
	return n
}
