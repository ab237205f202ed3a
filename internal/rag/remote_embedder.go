package rag

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"docqa/internal/ai"
)

// RemoteEmbedder calls a sentence-embedding model served behind an
// OpenAI-compatible /embeddings endpoint.
type RemoteEmbedder struct {
	client      *ai.OpenAICompatibleClient
	cfg         ai.EmbeddingConfig
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
}

type RemoteEmbedderOptions struct {
	BatchSize         int
	Concurrency       int
	RequestsPerSecond float64
}

func NewRemoteEmbedder(client *ai.OpenAICompatibleClient, cfg ai.EmbeddingConfig, opts RemoteEmbedderOptions) *RemoteEmbedder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	e := &RemoteEmbedder{
		client:      client,
		cfg:         cfg,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
	}
	if opts.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return e
}

func (e *RemoteEmbedder) Name() string {
	return e.cfg.Model
}

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	if err := e.wait(ctx); err != nil {
		return Vector{}, err
	}
	values, err := e.client.Embed(ctx, e.cfg, text)
	if err != nil {
		return Vector{}, err
	}
	return Vector{Model: e.Name(), Values: values}, nil
}

// EmbedBatch sends texts in batches, with up to concurrency batches in
// flight. Results keep the order of texts.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			if err := e.wait(gctx); err != nil {
				return err
			}
			values, err := e.client.EmbedBatch(gctx, e.cfg, texts[start:end])
			if err != nil {
				return err
			}
			if len(values) != end-start {
				return fmt.Errorf("embedding count mismatch: got %d, want %d", len(values), end-start)
			}
			for i, v := range values {
				out[start+i] = Vector{Model: e.Name(), Values: v}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *RemoteEmbedder) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("embedding rate limit wait failed: %w", err)
	}
	return nil
}
