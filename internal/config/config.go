package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `toml:"app" yaml:"app"`
	Log       LogConfig       `toml:"log" yaml:"log"`
	Auth      AuthConfig      `toml:"auth" yaml:"auth"`
	Database  DatabaseConfig  `toml:"database" yaml:"database"`
	Redis     RedisConfig     `toml:"redis" yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `toml:"rabbitmq" yaml:"rabbitmq"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	Models    []ModelConfig   `toml:"models" yaml:"models"`
	Embedding EmbeddingConfig `toml:"embedding" yaml:"embedding"`
	RAG       RAGConfig       `toml:"rag" yaml:"rag"`
	WebSearch WebSearchConfig `toml:"websearch" yaml:"websearch"`
	Extract   ExtractConfig   `toml:"extract" yaml:"extract"`
	Vision    VisionConfig    `toml:"vision" yaml:"vision"`
}

type AppConfig struct {
	Name    string `toml:"name" yaml:"name"`
	Env     string `toml:"env" yaml:"env"`
	Host    string `toml:"host" yaml:"host"`
	Port    int    `toml:"port" yaml:"port"`
	GinMode string `toml:"gin_mode" yaml:"gin_mode"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// DatabaseConfig selects the storage backend. URL points at PostgreSQL or
// MySQL; when it is empty or unreachable SQLitePath is used instead.
type DatabaseConfig struct {
	URL                 string `toml:"url" yaml:"url"`
	SQLitePath          string `toml:"sqlite_path" yaml:"sqlite_path"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
	MaxOpenConns        int    `toml:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns        int    `toml:"max_idle_conns" yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr              string `toml:"addr" yaml:"addr"`
	Password          string `toml:"password" yaml:"password"`
	DB                int    `toml:"db" yaml:"db"`
	HistoryTTLSeconds int    `toml:"history_ttl_seconds" yaml:"history_ttl_seconds"`
}

type RabbitMQConfig struct {
	URL               string `toml:"url" yaml:"url"`
	ConversationQueue string `toml:"conversation_queue" yaml:"conversation_queue"`
}

type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret" yaml:"jwt_secret"`
	TokenExpireMinute int    `toml:"token_expire_minute" yaml:"token_expire_minute"`
}

// LLMConfig describes the default generation model. It becomes the first
// catalog entry when Models is empty.
type LLMConfig struct {
	Provider        string `toml:"provider" yaml:"provider"`
	BaseURL         string `toml:"base_url" yaml:"base_url"`
	APIKey          string `toml:"api_key" yaml:"api_key"`
	Model           string `toml:"model" yaml:"model"`
	GeminiAPIKey    string `toml:"gemini_api_key" yaml:"gemini_api_key"`
	MaxContextChars int    `toml:"max_context_chars" yaml:"max_context_chars"`
}

type ModelConfig struct {
	Key             string `toml:"key" yaml:"key"`
	Name            string `toml:"name" yaml:"name"`
	Description     string `toml:"description" yaml:"description"`
	Provider        string `toml:"provider" yaml:"provider"`
	Model           string `toml:"model" yaml:"model"`
	BaseURL         string `toml:"base_url" yaml:"base_url"`
	APIKey          string `toml:"api_key" yaml:"api_key"`
	MaxContextChars int    `toml:"max_context_chars" yaml:"max_context_chars"`
}

type EmbeddingConfig struct {
	Provider          string  `toml:"provider" yaml:"provider"`
	BaseURL           string  `toml:"base_url" yaml:"base_url"`
	APIKey            string  `toml:"api_key" yaml:"api_key"`
	Model             string  `toml:"model" yaml:"model"`
	BatchSize         int     `toml:"batch_size" yaml:"batch_size"`
	Concurrency       int     `toml:"concurrency" yaml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	FallbackDims      int     `toml:"fallback_dims" yaml:"fallback_dims"`
}

type RAGConfig struct {
	ChunkSize     int     `toml:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap  int     `toml:"chunk_overlap" yaml:"chunk_overlap"`
	ChunkStrategy string  `toml:"chunk_strategy" yaml:"chunk_strategy"`
	TopK          int     `toml:"top_k" yaml:"top_k"`
	MinSimilarity float64 `toml:"min_similarity" yaml:"min_similarity"`
	HistoryTurns  int     `toml:"history_turns" yaml:"history_turns"`
}

type WebSearchConfig struct {
	APIKey        string `toml:"api_key" yaml:"api_key"`
	BaseURL       string `toml:"base_url" yaml:"base_url"`
	Model         string `toml:"model" yaml:"model"`
	WhenNoContext bool   `toml:"when_no_context" yaml:"when_no_context"`
}

type ExtractConfig struct {
	MaxFileBytes     int64  `toml:"max_file_bytes" yaml:"max_file_bytes"`
	TesseractPath    string `toml:"tesseract_path" yaml:"tesseract_path"`
	URLTimeoutSecond int    `toml:"url_timeout_seconds" yaml:"url_timeout_seconds"`
	UserAgent        string `toml:"user_agent" yaml:"user_agent"`
}

type VisionConfig struct {
	ModelPath         string `toml:"model_path" yaml:"model_path"`
	LabelsPath        string `toml:"labels_path" yaml:"labels_path"`
	TopK              int    `toml:"top_k" yaml:"top_k"`
	ONNXSharedLibPath string `toml:"onnx_shared_lib_path" yaml:"onnx_shared_lib_path"`
}

func Load() (*Config, error) {
	return LoadFile(getEnv("CONFIG_FILE", "configs/config.toml"))
}

// LoadFile reads path when it exists, then applies environment overrides.
// Files ending in .yaml or .yml are decoded as YAML, anything else as TOML.
func LoadFile(path string) (*Config, error) {
	cfg := defaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	overrideByEnv(cfg)
	cfg.normalize()
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file failed: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("decode config file failed: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("decode config file failed: %w", err)
		}
	}
	return nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// ModelCatalog returns the configured generation models. The default LLM
// section is used when no explicit catalog is configured.
func (c *Config) ModelCatalog() []ModelConfig {
	if len(c.Models) > 0 {
		return c.Models
	}
	if c.LLM.Model == "" {
		return nil
	}
	apiKey := c.LLM.APIKey
	if c.LLM.Provider == "gemini" {
		apiKey = c.LLM.GeminiAPIKey
	}
	return []ModelConfig{{
		Key:             "default",
		Name:            c.LLM.Model,
		Description:     "Default model",
		Provider:        c.LLM.Provider,
		Model:           c.LLM.Model,
		BaseURL:         c.LLM.BaseURL,
		APIKey:          apiKey,
		MaxContextChars: c.LLM.MaxContextChars,
	}}
}

func (c *Config) normalize() {
	for i := range c.Models {
		m := &c.Models[i]
		if m.Provider == "" {
			m.Provider = "openai"
		}
		if m.Name == "" {
			m.Name = m.Model
		}
		if m.MaxContextChars <= 0 {
			m.MaxContextChars = c.LLM.MaxContextChars
		}
		if m.Provider == "gemini" && m.APIKey == "" {
			m.APIKey = c.LLM.GeminiAPIKey
		}
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkOverlap = c.RAG.ChunkSize / 2
	}
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    "docqa",
			Env:     "dev",
			Host:    "0.0.0.0",
			Port:    8080,
			GinMode: "debug",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: AuthConfig{
			JWTSecret:         "change-me-in-production",
			TokenExpireMinute: 24 * 60,
		},
		Database: DatabaseConfig{
			SQLitePath:          "docqa.db",
			ProbeTimeoutSeconds: 3,
			MaxOpenConns:        20,
			MaxIdleConns:        5,
		},
		Redis: RedisConfig{
			HistoryTTLSeconds: 300,
		},
		RabbitMQ: RabbitMQConfig{
			ConversationQueue: "docqa.conversation.persist",
		},
		LLM: LLMConfig{
			Provider:        "openai",
			BaseURL:         "https://api.openai.com/v1",
			MaxContextChars: 800,
		},
		Embedding: EmbeddingConfig{
			Provider:     "hash",
			Model:        "all-MiniLM-L6-v2",
			BatchSize:    32,
			Concurrency:  4,
			FallbackDims: 384,
		},
		RAG: RAGConfig{
			ChunkSize:     500,
			ChunkOverlap:  50,
			ChunkStrategy: "window",
			TopK:          3,
			MinSimilarity: 0.3,
			HistoryTurns:  2,
		},
		WebSearch: WebSearchConfig{
			BaseURL: "https://api.perplexity.ai",
			Model:   "sonar",
		},
		Extract: ExtractConfig{
			MaxFileBytes:     20 << 20,
			TesseractPath:    "tesseract",
			URLTimeoutSecond: 15,
			UserAgent:        "Mozilla/5.0 (compatible; docqa/1.0)",
		},
		Vision: VisionConfig{
			ModelPath:  "assets/mobilenetv2-7.onnx",
			LabelsPath: "assets/labels.txt",
			TopK:       3,
		},
	}
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)
	cfg.App.Host = getEnv("APP_HOST", cfg.App.Host)
	cfg.App.Port = getEnvAsInt("APP_PORT", cfg.App.Port)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenExpireMinute = getEnvAsInt("TOKEN_EXPIRE_MINUTE", cfg.Auth.TokenExpireMinute)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.SQLitePath = getEnv("SQLITE_PATH", cfg.Database.SQLitePath)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.HistoryTTLSeconds = getEnvAsInt("REDIS_HISTORY_TTL_SECONDS", cfg.Redis.HistoryTTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.ConversationQueue = getEnv("RABBITMQ_CONVERSATION_QUEUE", cfg.RabbitMQ.ConversationQueue)

	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.LLM.GeminiAPIKey)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)

	cfg.WebSearch.APIKey = getEnv("PERPLEXITY_API_KEY", cfg.WebSearch.APIKey)

	cfg.Extract.TesseractPath = getEnv("TESSERACT_PATH", cfg.Extract.TesseractPath)

	cfg.Vision.ModelPath = getEnv("VISION_MODEL_PATH", cfg.Vision.ModelPath)
	cfg.Vision.LabelsPath = getEnv("VISION_LABELS_PATH", cfg.Vision.LabelsPath)
	cfg.Vision.TopK = getEnvAsInt("VISION_TOP_K", cfg.Vision.TopK)
	cfg.Vision.ONNXSharedLibPath = getEnv("VISION_ONNX_LIB", cfg.Vision.ONNXSharedLibPath)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
