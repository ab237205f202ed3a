package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"docqa/internal/extract"
	"docqa/internal/model"
	"docqa/internal/rag"
	"docqa/internal/repository"
)

const maxFilenameRunes = 255

type Extractor interface {
	ExtractFile(ctx context.Context, filename string, data []byte) (*extract.Document, error)
	ExtractURL(ctx context.Context, rawURL string) (*extract.Document, error)
}

type DocumentFilter interface {
	Add(hash string)
	MayContain(hash string) bool
	Reset()
}

type DocumentServiceDeps struct {
	Chunks        *repository.ChunkRepository
	Conversations *repository.ConversationRepository
	Extractor     Extractor
	Chunker       *rag.Chunker
	Embedder      rag.Embedder
	Filter        DocumentFilter
	DatabaseType  string
	Logger        *slog.Logger
}

// DocumentService owns the ingestion side of the pipeline: extract, chunk,
// embed and store.
type DocumentService struct {
	chunks        *repository.ChunkRepository
	conversations *repository.ConversationRepository
	extractor     Extractor
	chunker       *rag.Chunker
	embedder      rag.Embedder
	filter        DocumentFilter
	databaseType  string
	logger        *slog.Logger
}

func NewDocumentService(deps DocumentServiceDeps) *DocumentService {
	if deps.Chunker == nil {
		deps.Chunker = rag.NewChunker(rag.DefaultChunkSize, rag.DefaultChunkOverlap, rag.StrategyWindow)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &DocumentService{
		chunks:        deps.Chunks,
		conversations: deps.Conversations,
		extractor:     deps.Extractor,
		chunker:       deps.Chunker,
		embedder:      deps.Embedder,
		filter:        deps.Filter,
		databaseType:  deps.DatabaseType,
		logger:        deps.Logger,
	}
}

type IngestFileInput struct {
	Filename string
	Data     []byte
}

type IngestResult struct {
	Filename       string `json:"filename"`
	SourceType     string `json:"source_type"`
	Chunks         int    `json:"chunks"`
	Characters     int    `json:"characters"`
	EmbeddingModel string `json:"embedding_model"`
	Replaced       bool   `json:"replaced"`
}

func (s *DocumentService) IngestFile(ctx context.Context, input IngestFileInput) (*IngestResult, error) {
	name := filepath.Base(strings.TrimSpace(input.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, ErrInvalidInput
	}
	if len(input.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	doc, err := s.extractor.ExtractFile(ctx, name, input.Data)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, name, doc.SourceType, doc.Text)
}

func (s *DocumentService) IngestURL(ctx context.Context, rawURL string) (*IngestResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidInput
	}

	doc, err := s.extractor.ExtractURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, urlDocumentName(doc.Name, rawURL), extract.SourceURL, doc.Text)
}

// ingest stores text under name. Identical content is rejected; new content
// under an existing name replaces the old chunks.
func (s *DocumentService) ingest(ctx context.Context, name, sourceType, text string) (*IngestResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyDocument
	}

	hash := ContentHash(text)
	if s.filter == nil || s.filter.MayContain(hash) {
		exists, err := s.chunks.ExistsByContentHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, name)
		}
	}

	pieces := s.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, ErrEmptyDocument
	}

	vectors, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(vectors) != len(pieces) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(pieces))
	}

	now := time.Now()
	rows := make([]model.DocumentChunk, len(pieces))
	for i, piece := range pieces {
		rows[i] = model.DocumentChunk{
			Filename:       name,
			Content:        piece,
			ChunkIndex:     i,
			ContentHash:    hash,
			SourceType:     sourceType,
			EmbeddingModel: vectors[i].Model,
			Embedding:      rag.EncodeVector(vectors[i].Values),
			CreatedAt:      now,
		}
	}

	replaced, err := s.chunks.ReplaceDocument(ctx, name, rows)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateContent) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDocument, name)
		}
		return nil, err
	}
	if s.filter != nil {
		s.filter.Add(hash)
	}

	s.logger.Info("document ingested",
		"filename", name, "source_type", sourceType, "chunks", len(rows),
		"embedding_model", vectors[0].Model, "replaced", replaced > 0)

	return &IngestResult{
		Filename:       name,
		SourceType:     sourceType,
		Chunks:         len(rows),
		Characters:     len([]rune(text)),
		EmbeddingModel: vectors[0].Model,
		Replaced:       replaced > 0,
	}, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context) ([]model.DocumentSummary, error) {
	return s.chunks.ListDocuments(ctx)
}

func (s *DocumentService) DeleteDocument(ctx context.Context, filename string) error {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return ErrInvalidInput
	}
	n, err := s.chunks.DeleteByFilename(ctx, filename)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDocumentNotFound
	}
	s.logger.Info("document deleted", "filename", filename, "chunks", n)
	return nil
}

// ClearDocuments removes every stored chunk and returns how many were deleted.
func (s *DocumentService) ClearDocuments(ctx context.Context) (int64, error) {
	n, err := s.chunks.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	if s.filter != nil {
		s.filter.Reset()
	}
	s.logger.Info("documents cleared", "chunks", n)
	return n, nil
}

type Stats struct {
	UniqueDocuments    int64      `json:"unique_documents"`
	TotalChunks        int64      `json:"total_chunks"`
	TotalConversations int64      `json:"total_conversations"`
	LastDocumentUpload *time.Time `json:"last_document_upload,omitempty"`
	LastConversation   *time.Time `json:"last_conversation,omitempty"`
	DatabaseType       string     `json:"database_type"`
}

func (s *DocumentService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  = &Stats{DatabaseType: s.databaseType}
		err error
	)
	if st.UniqueDocuments, err = s.chunks.CountDocuments(ctx); err != nil {
		return nil, err
	}
	if st.TotalChunks, err = s.chunks.CountChunks(ctx); err != nil {
		return nil, err
	}
	if st.LastDocumentUpload, err = s.chunks.LastCreatedAt(ctx); err != nil {
		return nil, err
	}
	if s.conversations != nil {
		if st.TotalConversations, err = s.conversations.Count(ctx); err != nil {
			return nil, err
		}
		if st.LastConversation, err = s.conversations.LastCreatedAt(ctx); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// ContentHash identifies document text for duplicate detection.
func ContentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}

func urlDocumentName(title, rawURL string) string {
	title = strings.TrimSpace(title)
	if title == "" || title == rawURL {
		return truncateName(rawURL)
	}
	return truncateName(title + " (" + rawURL + ")")
}

func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= maxFilenameRunes {
		return name
	}
	return string(runes[:maxFilenameRunes])
}
