package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"docqa/internal/app"
	"docqa/internal/cache"
	"docqa/internal/config"
	"docqa/internal/extract"
	"docqa/internal/mock"
	"docqa/internal/platform/database"
	"docqa/internal/rag"
	"docqa/internal/repository"
)

type testStore struct {
	db            *gorm.DB
	chunks        *repository.ChunkRepository
	conversations *repository.ConversationRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{SQLitePath: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return testStore{
		db:            db.Gorm,
		chunks:        repository.NewChunkRepository(db.Gorm),
		conversations: repository.NewConversationRepository(db.Gorm),
	}
}

func newDocumentService(t *testing.T, store testStore, extractor app.Extractor) *app.DocumentService {
	t.Helper()

	if extractor == nil {
		extractor = extract.New(extract.Options{MaxFileBytes: 1024})
	}
	return app.NewDocumentService(app.DocumentServiceDeps{
		Chunks:        store.chunks,
		Conversations: store.conversations,
		Extractor:     extractor,
		Chunker:       rag.NewChunker(40, 5, rag.StrategyWindow),
		Embedder:      rag.NewHashEmbedder(32),
		Filter:        cache.NewDocumentFilter(),
		DatabaseType:  "SQLite",
	})
}

func TestDocumentService_IngestFile(t *testing.T) {
	t.Parallel()

	t.Run("stores chunks with embeddings", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		svc := newDocumentService(t, store, nil)
		text := "The warranty covers parts for two years. Labor is covered for one year. Batteries are excluded."

		res, err := svc.IngestFile(context.Background(), app.IngestFileInput{Filename: "dir/warranty.txt", Data: []byte(text)})
		require.NoError(t, err)

		assert.Equal(t, "warranty.txt", res.Filename)
		assert.Equal(t, extract.SourceText, res.SourceType)
		assert.Equal(t, "hash-32", res.EmbeddingModel)
		assert.Greater(t, res.Chunks, 1)
		assert.False(t, res.Replaced)

		rows, err := store.chunks.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, res.Chunks)
		for i, row := range rows {
			assert.Equal(t, i, row.ChunkIndex)
			assert.Equal(t, app.ContentHash(text), row.ContentHash)
			v, err := rag.DecodeVector(row.Embedding)
			require.NoError(t, err)
			assert.Len(t, v, 32)
		}
	})

	t.Run("rejects identical content", func(t *testing.T) {
		t.Parallel()

		svc := newDocumentService(t, newTestStore(t), nil)
		in := app.IngestFileInput{Filename: "a.txt", Data: []byte("same text")}

		_, err := svc.IngestFile(context.Background(), in)
		require.NoError(t, err)

		in.Filename = "b.txt"
		_, err = svc.IngestFile(context.Background(), in)
		require.ErrorIs(t, err, app.ErrDuplicateDocument)
	})

	t.Run("new content under the same name replaces old chunks", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		svc := newDocumentService(t, store, nil)

		_, err := svc.IngestFile(context.Background(), app.IngestFileInput{Filename: "a.txt", Data: []byte("first version")})
		require.NoError(t, err)
		res, err := svc.IngestFile(context.Background(), app.IngestFileInput{Filename: "a.txt", Data: []byte("second version")})
		require.NoError(t, err)
		assert.True(t, res.Replaced)

		rows, err := store.chunks.ListAll(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "second version", rows[0].Content)
	})

	t.Run("failed replace keeps the previous chunks", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		svc := newDocumentService(t, store, nil)
		ctx := context.Background()

		_, err := svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.txt", Data: []byte("first version")})
		require.NoError(t, err)

		require.NoError(t, store.db.Callback().Create().Before("gorm:create").Register("test:fail_create", func(tx *gorm.DB) {
			_ = tx.AddError(errors.New("disk full"))
		}))

		_, err = svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.txt", Data: []byte("second version")})
		require.ErrorContains(t, err, "disk full")

		rows, err := store.chunks.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "first version", rows[0].Content)
	})

	t.Run("validation errors", func(t *testing.T) {
		t.Parallel()

		svc := newDocumentService(t, newTestStore(t), nil)
		ctx := context.Background()

		_, err := svc.IngestFile(ctx, app.IngestFileInput{Filename: " ", Data: []byte("x")})
		require.ErrorIs(t, err, app.ErrInvalidInput)

		_, err = svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.txt"})
		require.ErrorIs(t, err, app.ErrEmptyDocument)

		_, err = svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.exe", Data: []byte("x")})
		require.ErrorIs(t, err, app.ErrUnsupportedType)

		_, err = svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.txt", Data: []byte(strings.Repeat("x", 2048))})
		require.ErrorIs(t, err, app.ErrFileTooLarge)

		_, err = svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.txt", Data: []byte(" \n ")})
		require.ErrorIs(t, err, app.ErrEmptyDocument)
	})

	t.Run("embedding failure stores nothing", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		svc := app.NewDocumentService(app.DocumentServiceDeps{
			Chunks:    store.chunks,
			Extractor: extract.New(extract.Options{}),
			Embedder: &mock.Embedder{
				EmbedBatchFn: func(ctx context.Context, texts []string) ([]rag.Vector, error) {
					return nil, errors.New("model offline")
				},
			},
		})

		_, err := svc.IngestFile(context.Background(), app.IngestFileInput{Filename: "a.txt", Data: []byte("text")})
		require.Error(t, err)

		n, err := store.chunks.CountChunks(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestDocumentService_IngestURL(t *testing.T) {
	t.Parallel()

	extractor := &mock.Extractor{
		ExtractURLFn: func(ctx context.Context, rawURL string) (*extract.Document, error) {
			return &extract.Document{Name: "Release Notes", Text: "Version 2 adds search.", SourceType: extract.SourceURL}, nil
		},
	}

	t.Run("names the document after the page title", func(t *testing.T) {
		t.Parallel()

		svc := newDocumentService(t, newTestStore(t), extractor)

		res, err := svc.IngestURL(context.Background(), "https://example.com/notes")
		require.NoError(t, err)
		assert.Equal(t, "Release Notes (https://example.com/notes)", res.Filename)
		assert.Equal(t, extract.SourceURL, res.SourceType)
	})

	t.Run("rejects non-http urls", func(t *testing.T) {
		t.Parallel()

		svc := newDocumentService(t, newTestStore(t), extractor)

		for _, raw := range []string{"", "ftp://example.com/a", "not a url", "https://"} {
			_, err := svc.IngestURL(context.Background(), raw)
			require.ErrorIs(t, err, app.ErrInvalidInput, raw)
		}
	})
}

func TestDocumentService_ManageDocuments(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	filter := cache.NewDocumentFilter()
	svc := app.NewDocumentService(app.DocumentServiceDeps{
		Chunks:        store.chunks,
		Conversations: store.conversations,
		Extractor:     extract.New(extract.Options{}),
		Embedder:      rag.NewHashEmbedder(16),
		Filter:        filter,
		DatabaseType:  "SQLite",
	})
	ctx := context.Background()

	_, err := svc.IngestFile(ctx, app.IngestFileInput{Filename: "a.txt", Data: []byte("alpha")})
	require.NoError(t, err)
	_, err = svc.IngestFile(ctx, app.IngestFileInput{Filename: "b.csv", Data: []byte("name,qty\nbolt,4\n")})
	require.NoError(t, err)

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.UniqueDocuments)
	assert.Equal(t, int64(2), stats.TotalChunks)
	assert.Equal(t, "SQLite", stats.DatabaseType)
	assert.NotNil(t, stats.LastDocumentUpload)
	assert.Nil(t, stats.LastConversation)

	require.NoError(t, svc.DeleteDocument(ctx, "a.txt"))
	require.ErrorIs(t, svc.DeleteDocument(ctx, "a.txt"), app.ErrDocumentNotFound)
	require.ErrorIs(t, svc.DeleteDocument(ctx, ""), app.ErrInvalidInput)

	n, err := svc.ClearDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, filter.MayContain(app.ContentHash("alpha")))

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.UniqueDocuments)
	assert.Nil(t, stats.LastDocumentUpload)
}
