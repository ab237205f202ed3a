package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docqa/internal/model"
)

const chunkInsertBatch = 100

// ErrDuplicateContent reports that a chunk with the same content hash and
// index is already stored.
var ErrDuplicateContent = errors.New("document content already stored")

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// CreateBatch stores all chunks of one document in a single transaction.
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&chunks, chunkInsertBatch).Error
	})
	if err != nil {
		return createError(err)
	}
	return nil
}

// ReplaceDocument swaps every chunk stored under filename for chunks in one
// transaction and reports how many old rows were removed. On failure the
// previous chunks are kept.
func (r *ChunkRepository) ReplaceDocument(ctx context.Context, filename string, chunks []model.DocumentChunk) (int64, error) {
	var replaced int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("filename = ?", filename).Delete(&model.DocumentChunk{})
		if result.Error != nil {
			return fmt.Errorf("delete document chunks failed: %w", result.Error)
		}
		replaced = result.RowsAffected
		if len(chunks) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&chunks, chunkInsertBatch).Error; err != nil {
			return createError(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return replaced, nil
}

func createError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create document chunks failed: %w", ErrDuplicateContent)
	}
	return fmt.Errorf("create document chunks failed: %w", err)
}

func (r *ChunkRepository) ListAll(ctx context.Context) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list document chunks failed: %w", err)
	}
	return chunks, nil
}

// ListByEmbeddingModel returns chunks whose vectors were produced by the
// named embedder, in insertion order.
func (r *ChunkRepository) ListByEmbeddingModel(ctx context.Context, embeddingModel string) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	if err := r.db.WithContext(ctx).
		Where("embedding_model = ?", embeddingModel).
		Order("id ASC").
		Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("list document chunks by embedding model failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) ListDocuments(ctx context.Context) ([]model.DocumentSummary, error) {
	var firsts []model.DocumentChunk
	if err := r.db.WithContext(ctx).
		Select("filename", "source_type", "created_at").
		Where("chunk_index = ?", 0).
		Order("created_at DESC").
		Order("id DESC").
		Find(&firsts).Error; err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}

	var counts []struct {
		Filename string
		Chunks   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Select("filename, COUNT(*) AS chunks").
		Group("filename").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("count chunks per document failed: %w", err)
	}
	byName := make(map[string]int64, len(counts))
	for _, c := range counts {
		byName[c.Filename] = c.Chunks
	}

	docs := make([]model.DocumentSummary, 0, len(firsts))
	for _, c := range firsts {
		docs = append(docs, model.DocumentSummary{
			Filename:   c.Filename,
			SourceType: c.SourceType,
			Chunks:     byName[c.Filename],
			CreatedAt:  c.CreatedAt,
		})
	}
	return docs, nil
}

func (r *ChunkRepository) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Distinct("filename").Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return n, nil
}

func (r *ChunkRepository) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count document chunks failed: %w", err)
	}
	return n, nil
}

// LastCreatedAt returns nil when no chunk has been stored.
func (r *ChunkRepository) LastCreatedAt(ctx context.Context) (*time.Time, error) {
	var chunk model.DocumentChunk
	if err := r.db.WithContext(ctx).Select("created_at").Order("created_at DESC").Take(&chunk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last document upload failed: %w", err)
	}
	return &chunk.CreatedAt, nil
}

func (r *ChunkRepository) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Where("content_hash = ?", hash).Limit(1).Count(&n).Error; err != nil {
		return false, fmt.Errorf("query document by content hash failed: %w", err)
	}
	return n > 0, nil
}

func (r *ChunkRepository) ListContentHashes(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Distinct().Pluck("content_hash", &hashes).Error; err != nil {
		return nil, fmt.Errorf("list content hashes failed: %w", err)
	}
	return hashes, nil
}

// DeleteByFilename removes every chunk of the document and reports how many
// rows were deleted.
func (r *ChunkRepository) DeleteByFilename(ctx context.Context, filename string) (int64, error) {
	result := r.db.WithContext(ctx).Where("filename = ?", filename).Delete(&model.DocumentChunk{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete document chunks failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *ChunkRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.DocumentChunk{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete all document chunks failed: %w", result.Error)
	}
	return result.RowsAffected, nil
}
