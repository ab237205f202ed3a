package mock

import (
	"context"

	"docqa/internal/model"
	"docqa/internal/worker"
)

var _ worker.ConversationStore = (*ConversationStore)(nil)

// ConversationStore is a mock implementation of worker.ConversationStore.
type ConversationStore struct {
	CreateFn func(ctx context.Context, conv *model.Conversation) error
}

func (s *ConversationStore) Create(ctx context.Context, conv *model.Conversation) error {
	return s.CreateFn(ctx, conv)
}
