package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"docqa/internal/ai"
	"docqa/internal/app"
	"docqa/internal/cache"
	"docqa/internal/config"
	"docqa/internal/extract"
	"docqa/internal/logging"
	"docqa/internal/platform/database"
	rabbitmqClient "docqa/internal/platform/rabbitmq"
	redisClient "docqa/internal/platform/redis"
	"docqa/internal/rag"
	"docqa/internal/repository"
	"docqa/internal/vision"
	"docqa/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB                 *database.DB
	Redis              *redis.Client
	MQConn             *amqp.Connection
	ConversationWorker *worker.ConversationPersistWorker
	Labeler            *vision.Labeler

	Documents *app.DocumentService
	Assistant *app.AssistantService
	Checker   *app.SystemChecker

	StartedAt time.Time
}

type Options struct {
	// Async logs conversations through RabbitMQ and runs the persist worker.
	// Short-lived processes such as the CLI leave it off.
	Async bool
}

// New loads the configuration and builds the application.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	return NewWithConfig(ctx, cfg, logger, opts)
}

// NewWithConfig wires every dependency. Only the database is required: Redis,
// RabbitMQ, the embedding service, the vision model and the language models
// each degrade to a local fallback when unavailable.
func NewWithConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if cfg.Redis.Addr != "" {
		a.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, history cache disabled", "addr", cfg.Redis.Addr, "err", err)
		}
	}
	if opts.Async && cfg.RabbitMQ.URL != "" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, logging conversations synchronously", "err", err)
		}
	}

	chunkRepo := repository.NewChunkRepository(db.Gorm)
	conversationRepo := repository.NewConversationRepository(db.Gorm)

	hashes, err := chunkRepo.ListContentHashes(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	filter := cache.NewDocumentFilter(hashes...)

	hashEmbedder := rag.NewHashEmbedder(cfg.Embedding.FallbackDims)
	embedder := logging.NewLoggingEmbedder(newEmbedder(cfg.Embedding, hashEmbedder, logger), logger)

	retriever := rag.NewRetriever(chunkRepo, embedder, hashEmbedder)
	retriever.TopK = cfg.RAG.TopK
	retriever.MinSimilarity = cfg.RAG.MinSimilarity

	var labeler extract.ImageLabeler
	if l := vision.NewLabeler(cfg.Vision.ModelPath, cfg.Vision.LabelsPath, cfg.Vision.ONNXSharedLibPath, cfg.Vision.TopK); l.Available() {
		a.Labeler = l
		labeler = l
	} else {
		logger.Info("vision model not found, images without text cannot be described", "model_path", cfg.Vision.ModelPath)
	}
	extractor := extract.New(extract.Options{
		MaxFileBytes:  cfg.Extract.MaxFileBytes,
		TesseractPath: cfg.Extract.TesseractPath,
		Labeler:       labeler,
		URL: extract.URLOptions{
			Timeout:   time.Duration(cfg.Extract.URLTimeoutSecond) * time.Second,
			UserAgent: cfg.Extract.UserAgent,
		},
	})

	models := app.NewModelCatalog(newModelEntries(ctx, cfg, logger)...)
	web := ai.NewPerplexityClient(cfg.WebSearch.BaseURL, cfg.WebSearch.APIKey, cfg.WebSearch.Model)

	var history app.HistoryCache
	if a.Redis != nil {
		history = cache.NewHistoryCache(a.Redis, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	}

	var publisher app.ConversationPublisher
	if a.MQConn != nil {
		a.ConversationWorker = worker.NewConversationPersistWorker(a.MQConn, conversationRepo, cfg.RabbitMQ.ConversationQueue, logger)
		if err := a.ConversationWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start conversation worker failed: %w", err)
		}
		publisher = rabbitmqClient.NewConversationPublisher(a.MQConn, cfg.RabbitMQ.ConversationQueue)
	}

	a.Documents = app.NewDocumentService(app.DocumentServiceDeps{
		Chunks:        chunkRepo,
		Conversations: conversationRepo,
		Extractor:     extractor,
		Chunker:       rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap, cfg.RAG.ChunkStrategy),
		Embedder:      embedder,
		Filter:        filter,
		DatabaseType:  db.Type(),
		Logger:        logger,
	})
	a.Assistant = app.NewAssistantService(app.AssistantServiceDeps{
		Retriever:        retriever,
		Models:           models,
		Web:              web,
		Conversations:    conversationRepo,
		History:          history,
		Publisher:        publisher,
		HistoryTurns:     cfg.RAG.HistoryTurns,
		TopK:             cfg.RAG.TopK,
		WebWhenNoContext: cfg.WebSearch.WhenNoContext,
		Logger:           logger,
	})
	a.Checker = app.NewSystemChecker(app.SystemCheckerDeps{
		Chunks:       chunkRepo,
		DatabaseType: db.Type(),
		Embedder:     embedder,
		Retriever:    retriever,
		Models:       models,
		Web:          web,
		Logger:       logger,
	})

	logger.Info("application ready",
		"database", db.Type(),
		"embedder", embedder.Name(),
		"models", len(models.List()),
		"web_search", web.Available(),
		"history_cache", a.Redis != nil,
		"async_logging", publisher != nil,
	)
	return a, nil
}

// newEmbedder returns the remote sentence embedder backed by the hash
// embedder, or the hash embedder alone when no remote service is configured.
func newEmbedder(cfg config.EmbeddingConfig, hash *rag.HashEmbedder, logger *slog.Logger) rag.Embedder {
	if cfg.Provider != "remote" || cfg.BaseURL == "" {
		return hash
	}
	remote := rag.NewRemoteEmbedder(ai.NewOpenAICompatibleClient(), ai.EmbeddingConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	}, rag.RemoteEmbedderOptions{
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	return rag.NewFallbackEmbedder(remote, hash, logger)
}

func newModelEntries(ctx context.Context, cfg *config.Config, logger *slog.Logger) []app.ModelEntry {
	client := ai.NewOpenAICompatibleClient()

	var entries []app.ModelEntry
	for _, m := range cfg.ModelCatalog() {
		entry := app.ModelEntry{
			Key:             m.Key,
			Name:            m.Name,
			Description:     m.Description,
			Provider:        m.Provider,
			MaxContextChars: m.MaxContextChars,
		}

		var gen ai.Generator
		switch m.Provider {
		case "gemini":
			g, err := ai.NewGeminiModel(ctx, m.APIKey, m.Model)
			if err != nil {
				logger.Warn("gemini model unavailable", "key", m.Key, "err", err)
			} else {
				gen = g
			}
		default:
			baseURL, apiKey := m.BaseURL, m.APIKey
			if baseURL == "" {
				baseURL = cfg.LLM.BaseURL
			}
			if apiKey == "" {
				apiKey = cfg.LLM.APIKey
			}
			if baseURL == "" || m.Model == "" {
				logger.Warn("openai-compatible model missing base url or model", "key", m.Key)
			} else {
				gen = ai.NewOpenAIModel(client, ai.ChatConfig{BaseURL: baseURL, APIKey: apiKey, Model: m.Model})
			}
		}
		if gen != nil {
			entry.Generator = logging.NewLoggingGenerator(gen, logger)
		}
		entries = append(entries, entry)
	}
	return entries
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ConversationWorker != nil {
		a.ConversationWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Labeler != nil {
		a.Labeler.Close()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
