package ai

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("model is not configured")

// Generator produces an answer from a chat transcript.
type Generator interface {
	Name() string
	Generate(ctx context.Context, messages []ChatMessage) (string, error)
}

// StreamGenerator is a Generator that can emit the answer incrementally.
type StreamGenerator interface {
	Generator
	Stream(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error)
}

// OpenAIModel adapts OpenAICompatibleClient to Generator for one model.
type OpenAIModel struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

var _ StreamGenerator = (*OpenAIModel)(nil)

func NewOpenAIModel(client *OpenAICompatibleClient, cfg ChatConfig) *OpenAIModel {
	return &OpenAIModel{client: client, cfg: cfg}
}

func (m *OpenAIModel) Name() string {
	return m.cfg.Model
}

func (m *OpenAIModel) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	if m.cfg.BaseURL == "" || m.cfg.Model == "" {
		return "", ErrNotConfigured
	}
	return m.client.Complete(ctx, m.cfg, messages)
}

func (m *OpenAIModel) Stream(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error) {
	if m.cfg.BaseURL == "" || m.cfg.Model == "" {
		return "", ErrNotConfigured
	}
	return m.client.StreamComplete(ctx, m.cfg, messages, onChunk)
}
