package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docqa/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *model.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

// ListRecent returns the newest conversations first.
func (r *ConversationRepository) ListRecent(ctx context.Context, limit int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}

	var convs []model.Conversation
	if err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list recent conversations failed: %w", err)
	}
	return convs, nil
}

// ListBySession returns the last limit exchanges of a session, oldest first.
func (r *ConversationRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 10
	}

	var convs []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("list session conversations failed: %w", err)
	}
	for i, j := 0, len(convs)-1; i < j; i, j = i+1, j-1 {
		convs[i], convs[j] = convs[j], convs[i]
	}
	return convs, nil
}

func (r *ConversationRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Conversation{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count conversations failed: %w", err)
	}
	return n, nil
}

// LastCreatedAt returns nil when no conversation has been logged.
func (r *ConversationRepository) LastCreatedAt(ctx context.Context) (*time.Time, error) {
	var conv model.Conversation
	if err := r.db.WithContext(ctx).Select("created_at").Order("created_at DESC").Take(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last conversation failed: %w", err)
	}
	return &conv.CreatedAt, nil
}
