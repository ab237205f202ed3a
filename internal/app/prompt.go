package app

import (
	"fmt"
	"strings"

	"docqa/internal/ai"
	"docqa/internal/model"
)

const (
	defaultMaxContextChars = 800
	historyMessageChars    = 150

	systemPrompt = "You are a helpful document assistant. Answer the user's question using the document information and web results provided. " +
		"Mention the document names you rely on. If the provided information does not answer the question, say so instead of guessing."
)

type PromptInput struct {
	Question        string
	History         []model.Conversation
	DocumentContext string
	Web             *ai.WebResult
	MaxContextChars int
}

// BuildPrompt renders the system instruction, the recent exchanges and a final
// user message carrying document and web context.
func BuildPrompt(in PromptInput) []ai.ChatMessage {
	messages := []ai.ChatMessage{{Role: "system", Content: systemPrompt}}
	for _, conv := range in.History {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: truncate(conv.UserMessage, historyMessageChars)},
			ai.ChatMessage{Role: "assistant", Content: truncate(conv.AssistantResponse, historyMessageChars)},
		)
	}

	maxContext := in.MaxContextChars
	if maxContext <= 0 {
		maxContext = defaultMaxContextChars
	}

	var b strings.Builder
	if ctx := strings.TrimSpace(in.DocumentContext); ctx != "" {
		b.WriteString("Document information:\n")
		b.WriteString(truncate(ctx, maxContext))
		b.WriteString("\n\n")
	}
	if in.Web != nil && strings.TrimSpace(in.Web.Answer) != "" {
		b.WriteString("Current web information:\n")
		b.WriteString(in.Web.Answer)
		b.WriteString("\n")
		if len(in.Web.Sources) > 0 {
			b.WriteString("Sources:\n")
			for i, src := range in.Web.Sources {
				fmt.Fprintf(&b, "%d. %s\n", i+1, src)
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(in.Question))

	return append(messages, ai.ChatMessage{Role: "user", Content: b.String()})
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
