package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docqa/internal/ai"
	"docqa/internal/rag"
	"docqa/internal/repository"
)

type CheckResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type CheckReport struct {
	Database   CheckResult `json:"database"`
	Embeddings CheckResult `json:"embeddings"`
	Retrieval  CheckResult `json:"retrieval"`
	Model      CheckResult `json:"model"`
	WebSearch  CheckResult `json:"web_search"`
}

// OK reports whether every required feature works. Web search is optional.
func (r *CheckReport) OK() bool {
	return r.Database.OK && r.Embeddings.OK && r.Retrieval.OK && r.Model.OK
}

type SystemCheckerDeps struct {
	Chunks       *repository.ChunkRepository
	DatabaseType string
	Embedder     rag.Embedder
	Retriever    ContextRetriever
	Models       *ModelCatalog
	Web          WebSearcher
	Logger       *slog.Logger
}

// SystemChecker exercises each stage of the pipeline once with a fixed probe.
type SystemChecker struct {
	deps SystemCheckerDeps
}

func NewSystemChecker(deps SystemCheckerDeps) *SystemChecker {
	if deps.Models == nil {
		deps.Models = NewModelCatalog()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &SystemChecker{deps: deps}
}

func (c *SystemChecker) Check(ctx context.Context) *CheckReport {
	report := &CheckReport{
		Database:   c.checkDatabase(ctx),
		Embeddings: c.checkEmbeddings(ctx),
		Retrieval:  c.checkRetrieval(ctx),
		Model:      c.checkModel(ctx),
		WebSearch:  c.checkWebSearch(ctx),
	}
	c.deps.Logger.Info("system check finished",
		"database", report.Database.OK, "embeddings", report.Embeddings.OK,
		"retrieval", report.Retrieval.OK, "model", report.Model.OK, "web_search", report.WebSearch.OK)
	return report
}

func (c *SystemChecker) checkDatabase(ctx context.Context) CheckResult {
	if c.deps.Chunks == nil {
		return CheckResult{Message: "database not configured"}
	}
	n, err := c.deps.Chunks.CountDocuments(ctx)
	if err != nil {
		return CheckResult{Message: fmt.Sprintf("database error: %v", err)}
	}
	return CheckResult{OK: true, Message: fmt.Sprintf("%s connected, %d documents", c.deps.DatabaseType, n)}
}

func (c *SystemChecker) checkEmbeddings(ctx context.Context) CheckResult {
	if c.deps.Embedder == nil {
		return CheckResult{Message: "embedder not configured"}
	}
	v, err := c.deps.Embedder.Embed(ctx, "test")
	if err != nil {
		return CheckResult{Message: fmt.Sprintf("embedding error: %v", err)}
	}
	return CheckResult{OK: true, Message: fmt.Sprintf("%s, %d dimensions", v.Model, len(v.Values))}
}

func (c *SystemChecker) checkRetrieval(ctx context.Context) CheckResult {
	if c.deps.Retriever == nil {
		return CheckResult{Message: "retriever not configured"}
	}
	got, err := c.deps.Retriever.RelevantContext(ctx, "test query", rag.DefaultTopK)
	if err != nil {
		return CheckResult{Message: fmt.Sprintf("retrieval error: %v", err)}
	}
	return CheckResult{OK: true, Message: fmt.Sprintf("%d relevant chunks", len(got.Sources))}
}

func (c *SystemChecker) checkModel(ctx context.Context) CheckResult {
	entry, err := c.deps.Models.Resolve("")
	if err != nil {
		return CheckResult{Message: err.Error()}
	}
	if entry.Generator == nil {
		return CheckResult{OK: true, Message: "no model configured, using rule-based answers"}
	}
	answer, err := entry.Generator.Generate(ctx, []ai.ChatMessage{{Role: "user", Content: "Hello"}})
	if err != nil {
		return CheckResult{Message: fmt.Sprintf("%s error: %v", entry.Name, err)}
	}
	if strings.TrimSpace(answer) == "" {
		return CheckResult{Message: fmt.Sprintf("%s returned an empty answer", entry.Name)}
	}
	return CheckResult{OK: true, Message: fmt.Sprintf("%s responding", entry.Name)}
}

func (c *SystemChecker) checkWebSearch(ctx context.Context) CheckResult {
	if c.deps.Web == nil || !c.deps.Web.Available() {
		return CheckResult{Message: "web search not configured"}
	}
	res, err := c.deps.Web.Search(ctx, "What is today's date?")
	if err != nil {
		return CheckResult{Message: fmt.Sprintf("web search error: %v", err)}
	}
	return CheckResult{OK: true, Message: fmt.Sprintf("connected, %d sources", len(res.Sources))}
}
