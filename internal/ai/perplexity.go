package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultPerplexityModel   = "sonar"

	perplexitySystemPrompt = "Be precise and concise. Provide current, factual information with sources when possible."
)

// WebResult is a web-search answer and the URLs it cites.
type WebResult struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}

// PerplexityClient performs live web searches through Perplexity's
// chat-completions API.
type PerplexityClient struct {
	client  *OpenAICompatibleClient
	baseURL string
	apiKey  string
	model   string
}

func NewPerplexityClient(baseURL, apiKey, model string) *PerplexityClient {
	if baseURL == "" {
		baseURL = DefaultPerplexityBaseURL
	}
	if model == "" {
		model = DefaultPerplexityModel
	}
	return &PerplexityClient{
		client:  NewOpenAICompatibleClientWithHTTP(&http.Client{Timeout: 30 * time.Second}),
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

func (c *PerplexityClient) Available() bool {
	return c != nil && c.apiKey != ""
}

func (c *PerplexityClient) Search(ctx context.Context, query string) (*WebResult, error) {
	if !c.Available() {
		return nil, ErrNotConfigured
	}

	req := chatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: perplexitySystemPrompt},
			{Role: "user", Content: query},
		},
		MaxTokens:           500,
		Temperature:         0.2,
		TopP:                0.9,
		ReturnCitations:     true,
		SearchRecencyFilter: "month",
	}

	var parsed chatResponse
	if err := c.client.postJSON(ctx, "web search", c.baseURL, c.apiKey, "/chat/completions", req, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty web search choices")
	}
	return &WebResult{
		Answer:  strings.TrimSpace(parsed.Choices[0].Message.Content),
		Sources: parsed.Citations,
	}, nil
}
