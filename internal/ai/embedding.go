package ai

import (
	"context"
	"fmt"
	"strings"
)

// EmbeddingConfig points at an OpenAI-compatible /embeddings endpoint, for
// example a sentence-transformers server hosting all-MiniLM-L6-v2.
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAICompatibleClient) Embed(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, cfg, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return vectors[0], nil
}

// EmbedBatch returns one embedding per text, in input order. Empty texts are
// rejected because providers silently drop them and break the alignment.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := embeddingRequest{Model: cfg.Model, Input: make([]string, len(texts))}
	for i, t := range texts {
		req.Input[i] = strings.TrimSpace(t)
		if req.Input[i] == "" {
			return nil, fmt.Errorf("embedding input %d is empty", i)
		}
	}

	var parsed embeddingResponse
	if err := c.postJSON(ctx, "embedding", cfg.BaseURL, cfg.APIKey, "/embeddings", req, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding batch returned %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	// Providers may answer out of order; place by index unless it is
	// missing or repeated.
	vectors := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= len(vectors) || vectors[idx] != nil {
			idx = i
		}
		vectors[idx] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding batch has no vector for input %d", i)
		}
	}
	return vectors, nil
}
