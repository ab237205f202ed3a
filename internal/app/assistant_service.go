package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"docqa/internal/ai"
	"docqa/internal/model"
	"docqa/internal/rag"
	"docqa/internal/repository"
)

const defaultHistoryTurns = 2

type ContextRetriever interface {
	RelevantContext(ctx context.Context, query string, topK int) (rag.RetrievedContext, error)
}

type WebSearcher interface {
	Available() bool
	Search(ctx context.Context, query string) (*ai.WebResult, error)
}

type HistoryCache interface {
	Get(ctx context.Context, sessionID string) ([]model.Conversation, bool, error)
	Set(ctx context.Context, sessionID string, convs []model.Conversation) error
	Append(ctx context.Context, sessionID string, conv model.Conversation, max int) error
}

type ConversationPublisher interface {
	Publish(ctx context.Context, conv model.Conversation) error
}

type AssistantServiceDeps struct {
	Retriever     ContextRetriever
	Models        *ModelCatalog
	Web           WebSearcher
	Conversations *repository.ConversationRepository
	// History and Publisher are optional.
	History          HistoryCache
	Publisher        ConversationPublisher
	HistoryTurns     int
	TopK             int
	WebWhenNoContext bool
	Logger           *slog.Logger
}

// AssistantService answers questions: retrieve, optionally search the web,
// generate, and log the exchange.
type AssistantService struct {
	retriever        ContextRetriever
	models           *ModelCatalog
	web              WebSearcher
	conversations    *repository.ConversationRepository
	history          HistoryCache
	publisher        ConversationPublisher
	historyTurns     int
	topK             int
	webWhenNoContext bool
	logger           *slog.Logger
}

func NewAssistantService(deps AssistantServiceDeps) *AssistantService {
	if deps.Models == nil {
		deps.Models = NewModelCatalog()
	}
	if deps.HistoryTurns <= 0 {
		deps.HistoryTurns = defaultHistoryTurns
	}
	if deps.TopK <= 0 {
		deps.TopK = rag.DefaultTopK
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AssistantService{
		retriever:        deps.Retriever,
		models:           deps.Models,
		web:              deps.Web,
		conversations:    deps.Conversations,
		history:          deps.History,
		publisher:        deps.Publisher,
		historyTurns:     deps.HistoryTurns,
		topK:             deps.TopK,
		webWhenNoContext: deps.WebWhenNoContext,
		logger:           deps.Logger,
	}
}

type AskInput struct {
	SessionID string
	Question  string
	Model     string
	// WebSearch forces web search on or off; nil decides from the question.
	WebSearch *bool
	TopK      int
}

type AskResult struct {
	Answer        string       `json:"answer"`
	Sources       []rag.Source `json:"sources"`
	WebSources    []string     `json:"web_sources,omitempty"`
	ContextUsed   string       `json:"context_used,omitempty"`
	Model         string       `json:"model"`
	UsedFallback  bool         `json:"used_fallback"`
	UsedWebSearch bool         `json:"used_web_search"`
}

// turn is everything gathered before generation.
type turn struct {
	input     AskInput
	question  string
	entry     ModelEntry
	retrieved rag.RetrievedContext
	web       *ai.WebResult
	messages  []ai.ChatMessage
}

func (s *AssistantService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	t, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	var (
		answer   string
		fallback bool
	)
	if t.entry.Generator != nil {
		answer, err = t.entry.Generator.Generate(ctx, t.messages)
		if err != nil {
			s.logger.Warn("generation failed, using rule-based answer", "model", t.entry.Key, "err", err)
			fallback = true
		}
	} else {
		fallback = true
	}
	if fallback {
		answer = RuleBasedAnswer(t.question, t.retrieved, t.web)
	}

	return s.finish(ctx, t, answer, fallback), nil
}

// StreamAsk behaves like Ask but forwards model output through onChunk as it
// arrives. Models without streaming emit the whole answer as one chunk.
func (s *AssistantService) StreamAsk(ctx context.Context, input AskInput, onChunk func(chunk string) error) (*AskResult, error) {
	t, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	if sg, ok := t.entry.Generator.(ai.StreamGenerator); ok {
		emitted := false
		answer, err := sg.Stream(ctx, t.messages, func(chunk string) error {
			emitted = true
			return onChunk(chunk)
		})
		if err == nil {
			if strings.TrimSpace(answer) == "" {
				answer = emptyModelAnswer
				if err := onChunk(answer); err != nil {
					return nil, err
				}
			}
			return s.finish(ctx, t, answer, false), nil
		}
		if emitted {
			return nil, err
		}
		s.logger.Warn("streaming failed, using rule-based answer", "model", t.entry.Key, "err", err)
	} else if t.entry.Generator != nil {
		answer, err := t.entry.Generator.Generate(ctx, t.messages)
		if err == nil {
			if answer = strings.TrimSpace(answer); answer == "" {
				answer = emptyModelAnswer
			}
			if err := onChunk(answer); err != nil {
				return nil, err
			}
			return s.finish(ctx, t, answer, false), nil
		}
		s.logger.Warn("generation failed, using rule-based answer", "model", t.entry.Key, "err", err)
	}

	answer := RuleBasedAnswer(t.question, t.retrieved, t.web)
	if err := onChunk(answer); err != nil {
		return nil, err
	}
	return s.finish(ctx, t, answer, true), nil
}

func (s *AssistantService) prepare(ctx context.Context, input AskInput) (*turn, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrInvalidInput
	}
	entry, err := s.models.Resolve(input.Model)
	if err != nil {
		return nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.topK
	}

	t := &turn{input: input, question: question, entry: entry}
	if s.retriever != nil {
		t.retrieved, err = s.retriever.RelevantContext(ctx, question, topK)
		if err != nil {
			s.logger.Warn("retrieval failed, answering without documents", "err", err)
			t.retrieved = rag.RetrievedContext{}
		}
	}

	if s.shouldSearchWeb(input.WebSearch, question, t.retrieved) {
		t.web, err = s.web.Search(ctx, question)
		if err != nil {
			s.logger.Warn("web search failed", "err", err)
			t.web = nil
		}
	}

	t.messages = BuildPrompt(PromptInput{
		Question:        question,
		History:         s.loadHistory(ctx, input.SessionID),
		DocumentContext: t.retrieved.Context,
		Web:             t.web,
		MaxContextChars: entry.MaxContextChars,
	})
	return t, nil
}

func (s *AssistantService) shouldSearchWeb(force *bool, question string, retrieved rag.RetrievedContext) bool {
	if s.web == nil || !s.web.Available() {
		return false
	}
	if force != nil {
		return *force
	}
	if NeedsWebSearch(question) {
		return true
	}
	return s.webWhenNoContext && retrieved.Context == ""
}

func (s *AssistantService) finish(ctx context.Context, t *turn, answer string, fallback bool) *AskResult {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyModelAnswer
	}

	modelName := t.entry.Name
	if fallback {
		modelName = "rule-based"
	}
	s.record(ctx, model.Conversation{
		SessionID:         t.input.SessionID,
		UserMessage:       t.question,
		AssistantResponse: answer,
		ContextUsed:       t.retrieved.Context,
		Model:             modelName,
		CreatedAt:         time.Now(),
	})

	result := &AskResult{
		Answer:        answer,
		Sources:       t.retrieved.Sources,
		ContextUsed:   t.retrieved.Context,
		Model:         modelName,
		UsedFallback:  fallback,
		UsedWebSearch: t.web != nil,
	}
	if result.Sources == nil {
		result.Sources = []rag.Source{}
	}
	if t.web != nil {
		result.WebSources = t.web.Sources
	}
	return result
}

// record logs the exchange through the queue when one is configured and
// writes it directly otherwise. Failures never reach the caller.
func (s *AssistantService) record(ctx context.Context, conv model.Conversation) {
	logged := false
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, conv); err != nil {
			s.logger.Warn("enqueue conversation failed, writing directly", "err", err)
		} else {
			logged = true
		}
	}
	if !logged && s.conversations != nil {
		if err := s.conversations.Create(ctx, &conv); err != nil {
			s.logger.Error("log conversation failed", "session_id", conv.SessionID, "err", err)
		}
	}

	if s.history != nil && conv.SessionID != "" {
		if err := s.history.Append(ctx, conv.SessionID, conv, s.historyTurns); err != nil {
			s.logger.Warn("update history cache failed", "session_id", conv.SessionID, "err", err)
		}
	}
}

func (s *AssistantService) loadHistory(ctx context.Context, sessionID string) []model.Conversation {
	if sessionID == "" {
		return nil
	}
	if s.history != nil {
		convs, ok, err := s.history.Get(ctx, sessionID)
		if err == nil && ok {
			return lastN(convs, s.historyTurns)
		}
		if err != nil {
			s.logger.Warn("read history cache failed", "session_id", sessionID, "err", err)
		}
	}
	if s.conversations == nil {
		return nil
	}

	convs, err := s.conversations.ListBySession(ctx, sessionID, s.historyTurns)
	if err != nil {
		s.logger.Warn("load session history failed", "session_id", sessionID, "err", err)
		return nil
	}
	if s.history != nil {
		if err := s.history.Set(ctx, sessionID, convs); err != nil {
			s.logger.Warn("write history cache failed", "session_id", sessionID, "err", err)
		}
	}
	return convs
}

func (s *AssistantService) History(ctx context.Context, sessionID string, limit int) ([]model.Conversation, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListBySession(ctx, sessionID, limit)
}

func (s *AssistantService) RecentConversations(ctx context.Context, limit int) ([]model.Conversation, error) {
	return s.conversations.ListRecent(ctx, limit)
}

func (s *AssistantService) Models() []ModelInfo {
	return s.models.List()
}

func lastN(convs []model.Conversation, n int) []model.Conversation {
	if n > 0 && len(convs) > n {
		return convs[len(convs)-n:]
	}
	return convs
}
