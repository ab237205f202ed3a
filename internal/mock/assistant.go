package mock

import (
	"context"

	"docqa/internal/ai"
	"docqa/internal/app"
	"docqa/internal/model"
	"docqa/internal/rag"
)

var _ app.ContextRetriever = (*ContextRetriever)(nil)

// ContextRetriever is a mock implementation of app.ContextRetriever.
type ContextRetriever struct {
	RelevantContextFn func(ctx context.Context, query string, topK int) (rag.RetrievedContext, error)
}

func (r *ContextRetriever) RelevantContext(ctx context.Context, query string, topK int) (rag.RetrievedContext, error) {
	return r.RelevantContextFn(ctx, query, topK)
}

var _ app.WebSearcher = (*WebSearcher)(nil)

// WebSearcher is a mock implementation of app.WebSearcher.
type WebSearcher struct {
	AvailableFn func() bool
	SearchFn    func(ctx context.Context, query string) (*ai.WebResult, error)
}

func (w *WebSearcher) Available() bool {
	return w.AvailableFn()
}

func (w *WebSearcher) Search(ctx context.Context, query string) (*ai.WebResult, error) {
	return w.SearchFn(ctx, query)
}

var _ app.HistoryCache = (*HistoryCache)(nil)

// HistoryCache is a mock implementation of app.HistoryCache.
type HistoryCache struct {
	GetFn    func(ctx context.Context, sessionID string) ([]model.Conversation, bool, error)
	SetFn    func(ctx context.Context, sessionID string, convs []model.Conversation) error
	AppendFn func(ctx context.Context, sessionID string, conv model.Conversation, max int) error
}

func (h *HistoryCache) Get(ctx context.Context, sessionID string) ([]model.Conversation, bool, error) {
	return h.GetFn(ctx, sessionID)
}

func (h *HistoryCache) Set(ctx context.Context, sessionID string, convs []model.Conversation) error {
	return h.SetFn(ctx, sessionID, convs)
}

func (h *HistoryCache) Append(ctx context.Context, sessionID string, conv model.Conversation, max int) error {
	return h.AppendFn(ctx, sessionID, conv, max)
}

var _ app.ConversationPublisher = (*ConversationPublisher)(nil)

// ConversationPublisher is a mock implementation of app.ConversationPublisher.
type ConversationPublisher struct {
	PublishFn func(ctx context.Context, conv model.Conversation) error
}

func (p *ConversationPublisher) Publish(ctx context.Context, conv model.Conversation) error {
	return p.PublishFn(ctx, conv)
}
