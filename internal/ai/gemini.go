package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiModel generates answers through the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

var _ StreamGenerator = (*GeminiModel)(nil)

func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (m *GeminiModel) Name() string {
	return m.model
}

func (m *GeminiModel) Generate(ctx context.Context, messages []ChatMessage) (string, error) {
	contents, config := geminiRequest(messages)
	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return result.Text(), nil
}

func (m *GeminiModel) Stream(ctx context.Context, messages []ChatMessage, onChunk func(chunk string) error) (string, error) {
	contents, config := geminiRequest(messages)
	var full strings.Builder
	for result, err := range m.client.Models.GenerateContentStream(ctx, m.model, contents, config) {
		if err != nil {
			return "", fmt.Errorf("gemini stream failed: %w", err)
		}
		text := result.Text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}

// geminiRequest maps system messages to the system instruction and the
// assistant role to "model".
func geminiRequest(messages []ChatMessage) ([]*genai.Content, *genai.GenerateContentConfig) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}

	config := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	return contents, config
}
