package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// APIError is a non-2xx answer from an OpenAI-compatible endpoint.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s response status %d: %s", e.Op, e.StatusCode, strings.TrimSpace(e.Body))
}

// chatRequest covers the chat-completions body shared by OpenAI, local
// servers such as Ollama and Perplexity. Zero values are omitted.
type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	Stream              bool          `json:"stream"`
	MaxTokens           int           `json:"max_tokens,omitempty"`
	Temperature         float64       `json:"temperature,omitempty"`
	TopP                float64       `json:"top_p,omitempty"`
	ReturnCitations     bool          `json:"return_citations,omitempty"`
	SearchRecencyFilter string        `json:"search_recency_filter,omitempty"`
}

type chatChoice struct {
	Message ChatMessage `json:"message"`
	Delta   ChatMessage `json:"delta"`
}

type chatResponse struct {
	Choices   []chatChoice `json:"choices"`
	Citations []string     `json:"citations"`
}

// OpenAICompatibleClient speaks the chat-completions and embeddings endpoints
// of any OpenAI-compatible server.
type OpenAICompatibleClient struct {
	httpClient *http.Client
}

func NewOpenAICompatibleClient() *OpenAICompatibleClient {
	return NewOpenAICompatibleClientWithHTTP(&http.Client{Timeout: 90 * time.Second})
}

func NewOpenAICompatibleClientWithHTTP(httpClient *http.Client) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{httpClient: httpClient}
}

// post sends payload as JSON to baseURL+path. The caller closes the body of
// the returned response; error statuses are turned into *APIError.
func (c *OpenAICompatibleClient) post(ctx context.Context, op, baseURL, apiKey, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request failed: %w", op, err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request failed: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

// postJSON is post followed by decoding the whole response into out.
func (c *OpenAICompatibleClient) postJSON(ctx context.Context, op, baseURL, apiKey, path string, payload, out any) error {
	resp, err := c.post(ctx, op, baseURL, apiKey, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse %s json failed: %w", op, err)
	}
	return nil
}

func newChatRequest(cfg ChatConfig, messages []ChatMessage, stream bool) chatRequest {
	return chatRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Stream:      stream,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	var parsed chatResponse
	if err := c.postJSON(ctx, "llm", cfg.BaseURL, cfg.APIKey, "/chat/completions", newChatRequest(cfg, messages, false), &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// StreamComplete reads a server-sent event stream, calling onChunk for each
// content delta until [DONE]. It returns the concatenated answer.
func (c *OpenAICompatibleClient) StreamComplete(
	ctx context.Context,
	cfg ChatConfig,
	messages []ChatMessage,
	onChunk func(chunk string) error,
) (string, error) {
	resp, err := c.post(ctx, "llm stream", cfg.BaseURL, cfg.APIKey, "/chat/completions", newChatRequest(cfg, messages, true))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var full strings.Builder
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "[DONE]" {
			break
		}

		var event chatResponse
		if err := json.Unmarshal([]byte(payload), &event); err != nil || len(event.Choices) == 0 {
			continue
		}
		text := event.Choices[0].Delta.Content
		if text == "" {
			continue
		}

		full.WriteString(text)
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan llm stream failed: %w", err)
	}
	return full.String(), nil
}
