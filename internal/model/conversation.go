package model

import "time"

type Conversation struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	SessionID         string    `gorm:"size:64;index" json:"session_id"`
	UserMessage       string    `gorm:"type:text;not null" json:"user_message"`
	AssistantResponse string    `gorm:"type:text;not null" json:"assistant_response"`
	ContextUsed       string    `gorm:"type:text" json:"context_used"`
	Model             string    `gorm:"size:128" json:"model"`
	CreatedAt         time.Time `json:"created_at"`
}
