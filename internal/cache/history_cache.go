package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"docqa/internal/model"
)

// HistoryCache keeps the recent exchanges of each session in Redis so prompt
// building does not hit the database on every question.
type HistoryCache struct {
	client     *redisv9.Client
	historyTTL time.Duration
}

func NewHistoryCache(client *redisv9.Client, historyTTL time.Duration) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 5 * time.Minute
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
	}
}

func (c *HistoryCache) Get(ctx context.Context, sessionID string) ([]model.Conversation, bool, error) {
	raw, err := c.client.Get(ctx, c.historyKey(sessionID)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}

	var convs []model.Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached history failed: %w", err)
	}
	return convs, true, nil
}

func (c *HistoryCache) Set(ctx context.Context, sessionID string, convs []model.Conversation) error {
	payload, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("marshal history cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.historyKey(sessionID), payload, c.historyTTL).Err(); err != nil {
		return fmt.Errorf("redis set history failed: %w", err)
	}
	return nil
}

// Append adds conv to a cached history, keeping the newest max entries. A
// session that is not cached stays uncached so the next read reloads it
// from the database.
func (c *HistoryCache) Append(ctx context.Context, sessionID string, conv model.Conversation, max int) error {
	convs, ok, err := c.Get(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	convs = append(convs, conv)
	if max > 0 && len(convs) > max {
		convs = convs[len(convs)-max:]
	}
	return c.Set(ctx, sessionID, convs)
}

func (c *HistoryCache) Delete(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(sessionID string) string {
	return "docqa:history:" + sessionID
}
