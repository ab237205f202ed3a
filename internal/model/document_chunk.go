package model

import "time"

// DocumentChunk is one slice of an ingested document together with the
// serialized embedding used for retrieval.
type DocumentChunk struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Filename       string    `gorm:"size:255;not null;index" json:"filename"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	ChunkIndex     int       `gorm:"not null;uniqueIndex:idx_chunk_content,priority:2" json:"chunk_index"`
	ContentHash    string    `gorm:"size:16;uniqueIndex:idx_chunk_content,priority:1" json:"content_hash"`
	SourceType     string    `gorm:"size:16" json:"source_type"`
	EmbeddingModel string    `gorm:"size:128;index" json:"embedding_model"`
	Embedding      []byte    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentSummary aggregates the chunks stored for one filename.
type DocumentSummary struct {
	Filename   string    `json:"filename"`
	SourceType string    `json:"source_type"`
	Chunks     int64     `json:"chunks"`
	CreatedAt  time.Time `json:"created_at"`
}
