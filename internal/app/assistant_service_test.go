package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/ai"
	"docqa/internal/app"
	"docqa/internal/mock"
	"docqa/internal/model"
	"docqa/internal/rag"
)

func staticRetriever(rc rag.RetrievedContext) *mock.ContextRetriever {
	return &mock.ContextRetriever{
		RelevantContextFn: func(ctx context.Context, query string, topK int) (rag.RetrievedContext, error) {
			return rc, nil
		},
	}
}

func answering(name, answer string, captured *[]ai.ChatMessage) *mock.Generator {
	return &mock.Generator{
		NameFn: func() string { return name },
		GenerateFn: func(ctx context.Context, messages []ai.ChatMessage) (string, error) {
			if captured != nil {
				*captured = messages
			}
			return answer, nil
		},
	}
}

func offlineWeb() *mock.WebSearcher {
	return &mock.WebSearcher{AvailableFn: func() bool { return false }}
}

var warrantyContext = rag.RetrievedContext{
	Context: "The warranty covers parts for two years.",
	Sources: []rag.Source{{Filename: "warranty.txt", ChunkIndex: 0, Similarity: 0.82}},
}

func TestAssistantService_Ask(t *testing.T) {
	t.Parallel()

	t.Run("answers with the selected model and logs the exchange", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		var prompt []ai.ChatMessage
		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Retriever: staticRetriever(warrantyContext),
			Models: app.NewModelCatalog(app.ModelEntry{
				Key: "default", Name: "gpt-4o-mini", Generator: answering("gpt-4o-mini", " Two years. ", &prompt),
			}),
			Web:           offlineWeb(),
			Conversations: store.conversations,
		})

		res, err := svc.Ask(context.Background(), app.AskInput{SessionID: "s1", Question: "How long is the warranty?"})
		require.NoError(t, err)

		assert.Equal(t, "Two years.", res.Answer)
		assert.Equal(t, "gpt-4o-mini", res.Model)
		assert.False(t, res.UsedFallback)
		assert.False(t, res.UsedWebSearch)
		assert.Equal(t, warrantyContext.Sources, res.Sources)

		require.NotEmpty(t, prompt)
		last := prompt[len(prompt)-1].Content
		assert.Contains(t, last, "Document information:\nThe warranty covers parts for two years.")
		assert.True(t, strings.HasSuffix(last, "Question: How long is the warranty?"))

		history, err := svc.History(context.Background(), "s1", 10)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "Two years.", history[0].AssistantResponse)
		assert.Equal(t, warrantyContext.Context, history[0].ContextUsed)
	})

	t.Run("falls back to rule-based answer on model error", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Retriever: staticRetriever(warrantyContext),
			Models: app.NewModelCatalog(app.ModelEntry{
				Key: "default", Name: "m",
				Generator: &mock.Generator{
					NameFn: func() string { return "m" },
					GenerateFn: func(ctx context.Context, messages []ai.ChatMessage) (string, error) {
						return "", errors.New("quota exceeded")
					},
				},
			}),
			Conversations: newTestStore(t).conversations,
		})

		res, err := svc.Ask(context.Background(), app.AskInput{Question: "How long is the warranty?"})
		require.NoError(t, err)

		assert.True(t, res.UsedFallback)
		assert.Equal(t, "rule-based", res.Model)
		assert.True(t, strings.HasPrefix(res.Answer, "Based on your documents:\n\nThe warranty covers parts"))
		assert.Contains(t, res.Answer, "Sources: warranty.txt (similarity: 0.82)")
	})

	t.Run("empty catalog answers rule-based", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Retriever:     staticRetriever(rag.RetrievedContext{}),
			Conversations: newTestStore(t).conversations,
		})

		res, err := svc.Ask(context.Background(), app.AskInput{Question: "hello"})
		require.NoError(t, err)
		assert.True(t, res.UsedFallback)
		assert.Contains(t, res.Answer, "Hello!")
		assert.NotNil(t, res.Sources)
	})

	t.Run("empty model output is replaced", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Retriever: staticRetriever(rag.RetrievedContext{}),
			Models:    app.NewModelCatalog(app.ModelEntry{Key: "k", Name: "k", Generator: answering("k", "  ", nil)}),
		})

		res, err := svc.Ask(context.Background(), app.AskInput{Question: "anything"})
		require.NoError(t, err)
		assert.Contains(t, res.Answer, "having trouble generating a response")
		assert.False(t, res.UsedFallback)
	})

	t.Run("input errors", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models: app.NewModelCatalog(app.ModelEntry{Key: "k", Name: "k"}),
		})

		_, err := svc.Ask(context.Background(), app.AskInput{Question: "   "})
		require.ErrorIs(t, err, app.ErrInvalidInput)

		_, err = svc.Ask(context.Background(), app.AskInput{Question: "q", Model: "missing"})
		require.ErrorIs(t, err, app.ErrUnknownModel)
	})

	t.Run("retrieval failure degrades to no context", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Retriever: &mock.ContextRetriever{
				RelevantContextFn: func(ctx context.Context, query string, topK int) (rag.RetrievedContext, error) {
					return rag.RetrievedContext{}, errors.New("db down")
				},
			},
		})

		res, err := svc.Ask(context.Background(), app.AskInput{Question: "What does the contract say about penalties?"})
		require.NoError(t, err)
		assert.Empty(t, res.ContextUsed)
		assert.Contains(t, res.Answer, "couldn't find information")
	})

	t.Run("passes the requested top k", func(t *testing.T) {
		t.Parallel()

		var gotK int
		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Retriever: &mock.ContextRetriever{
				RelevantContextFn: func(ctx context.Context, query string, topK int) (rag.RetrievedContext, error) {
					gotK = topK
					return rag.RetrievedContext{}, nil
				},
			},
		})

		_, err := svc.Ask(context.Background(), app.AskInput{Question: "q", TopK: 7})
		require.NoError(t, err)
		assert.Equal(t, 7, gotK)

		_, err = svc.Ask(context.Background(), app.AskInput{Question: "q"})
		require.NoError(t, err)
		assert.Equal(t, rag.DefaultTopK, gotK)
	})
}

func TestAssistantService_WebSearch(t *testing.T) {
	t.Parallel()

	newWeb := func(calls *int) *mock.WebSearcher {
		return &mock.WebSearcher{
			AvailableFn: func() bool { return true },
			SearchFn: func(ctx context.Context, query string) (*ai.WebResult, error) {
				*calls++
				return &ai.WebResult{Answer: "Rates were cut.", Sources: []string{"https://news.example"}}, nil
			},
		}
	}
	yes, no := true, false

	tests := []struct {
		name      string
		question  string
		force     *bool
		noContext bool
		wantCalls int
	}{
		{name: "real-time keyword", question: "What is the latest news on rates?", wantCalls: 1},
		{name: "recent year", question: "Who won in 2025?", wantCalls: 1},
		{name: "plain document question", question: "What does section 4 cover?", wantCalls: 0},
		{name: "forced on", question: "What does section 4 cover?", force: &yes, wantCalls: 1},
		{name: "forced off", question: "What is the latest news?", force: &no, wantCalls: 0},
		{name: "no document context", question: "What does section 4 cover?", noContext: true, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			retrieved := warrantyContext
			if tt.noContext {
				retrieved = rag.RetrievedContext{}
			}
			var prompt []ai.ChatMessage
			svc := app.NewAssistantService(app.AssistantServiceDeps{
				Retriever:        staticRetriever(retrieved),
				Models:           app.NewModelCatalog(app.ModelEntry{Key: "k", Name: "k", Generator: answering("k", "ok", &prompt)}),
				Web:              newWeb(&calls),
				WebWhenNoContext: tt.noContext,
			})

			res, err := svc.Ask(context.Background(), app.AskInput{Question: tt.question, WebSearch: tt.force})
			require.NoError(t, err)

			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCalls == 1, res.UsedWebSearch)
			if tt.wantCalls == 1 {
				assert.Equal(t, []string{"https://news.example"}, res.WebSources)
				assert.Contains(t, prompt[len(prompt)-1].Content, "Current web information:\nRates were cut.\nSources:\n1. https://news.example")
			}
		})
	}

	t.Run("search failure is ignored", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Web: &mock.WebSearcher{
				AvailableFn: func() bool { return true },
				SearchFn: func(ctx context.Context, query string) (*ai.WebResult, error) {
					return nil, errors.New("timeout")
				},
			},
		})

		res, err := svc.Ask(context.Background(), app.AskInput{Question: "latest news"})
		require.NoError(t, err)
		assert.False(t, res.UsedWebSearch)
	})

	t.Run("rule-based answer uses web result", func(t *testing.T) {
		t.Parallel()

		calls := 0
		svc := app.NewAssistantService(app.AssistantServiceDeps{Web: newWeb(&calls)})

		res, err := svc.Ask(context.Background(), app.AskInput{Question: "latest interest rate news"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Answer, "**Latest Information:**\n\nRates were cut."))
	})
}

func TestAssistantService_History(t *testing.T) {
	t.Parallel()

	t.Run("cached history feeds the prompt", func(t *testing.T) {
		t.Parallel()

		var appended []model.Conversation
		history := &mock.HistoryCache{
			GetFn: func(ctx context.Context, sessionID string) ([]model.Conversation, bool, error) {
				return []model.Conversation{
					{UserMessage: "first", AssistantResponse: "one"},
					{UserMessage: "second", AssistantResponse: "two"},
					{UserMessage: "third", AssistantResponse: strings.Repeat("z", 200)},
				}, true, nil
			},
			AppendFn: func(ctx context.Context, sessionID string, conv model.Conversation, max int) error {
				assert.Equal(t, 2, max)
				appended = append(appended, conv)
				return nil
			},
		}
		var prompt []ai.ChatMessage
		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models:  app.NewModelCatalog(app.ModelEntry{Key: "k", Name: "k", Generator: answering("k", "ok", &prompt)}),
			History: history,
			Publisher: &mock.ConversationPublisher{
				PublishFn: func(ctx context.Context, conv model.Conversation) error { return nil },
			},
		})

		_, err := svc.Ask(context.Background(), app.AskInput{SessionID: "s1", Question: "fourth"})
		require.NoError(t, err)

		require.Len(t, prompt, 6)
		assert.Equal(t, "system", prompt[0].Role)
		assert.Equal(t, "second", prompt[1].Content)
		assert.Equal(t, "assistant", prompt[4].Role)
		assert.Equal(t, strings.Repeat("z", 150)+"...", prompt[4].Content)
		require.Len(t, appended, 1)
		assert.Equal(t, "fourth", appended[0].UserMessage)
	})

	t.Run("cache miss loads from the repository and fills the cache", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		ctx := context.Background()
		for _, q := range []string{"q1", "q2", "q3"} {
			require.NoError(t, store.conversations.Create(ctx, &model.Conversation{SessionID: "s1", UserMessage: q, AssistantResponse: "a"}))
		}

		var cached []model.Conversation
		history := &mock.HistoryCache{
			GetFn: func(ctx context.Context, sessionID string) ([]model.Conversation, bool, error) {
				return nil, false, nil
			},
			SetFn: func(ctx context.Context, sessionID string, convs []model.Conversation) error {
				cached = convs
				return nil
			},
			AppendFn: func(ctx context.Context, sessionID string, conv model.Conversation, max int) error { return nil },
		}
		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Conversations: store.conversations,
			History:       history,
		})

		_, err := svc.Ask(ctx, app.AskInput{SessionID: "s1", Question: "q4"})
		require.NoError(t, err)

		require.Len(t, cached, 2)
		assert.Equal(t, "q2", cached[0].UserMessage)
		assert.Equal(t, "q3", cached[1].UserMessage)
	})

	t.Run("publish failure writes directly", func(t *testing.T) {
		t.Parallel()

		store := newTestStore(t)
		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Conversations: store.conversations,
			Publisher: &mock.ConversationPublisher{
				PublishFn: func(ctx context.Context, conv model.Conversation) error { return errors.New("channel closed") },
			},
		})

		_, err := svc.Ask(context.Background(), app.AskInput{SessionID: "s1", Question: "thanks"})
		require.NoError(t, err)

		recent, err := svc.RecentConversations(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "rule-based", recent[0].Model)
	})

	t.Run("history requires a session", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{Conversations: newTestStore(t).conversations})
		_, err := svc.History(context.Background(), " ", 10)
		require.ErrorIs(t, err, app.ErrInvalidInput)
	})
}

func TestAssistantService_StreamAsk(t *testing.T) {
	t.Parallel()

	streaming := func(fn func(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)) app.ModelEntry {
		return app.ModelEntry{
			Key:  "s",
			Name: "streamer",
			Generator: &mock.StreamGenerator{
				Generator: mock.Generator{NameFn: func() string { return "streamer" }},
				StreamFn:  fn,
			},
		}
	}

	t.Run("forwards chunks", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models: app.NewModelCatalog(streaming(func(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
				for _, c := range []string{"Two ", "years."} {
					if err := onChunk(c); err != nil {
						return "", err
					}
				}
				return "Two years.", nil
			})),
		})

		var chunks []string
		res, err := svc.StreamAsk(context.Background(), app.AskInput{Question: "warranty?"}, func(c string) error {
			chunks = append(chunks, c)
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"Two ", "years."}, chunks)
		assert.Equal(t, "Two years.", res.Answer)
		assert.False(t, res.UsedFallback)
	})

	t.Run("failure before output falls back", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models: app.NewModelCatalog(streaming(func(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
				return "", errors.New("connection reset")
			})),
		})

		var chunks []string
		res, err := svc.StreamAsk(context.Background(), app.AskInput{Question: "hi"}, func(c string) error {
			chunks = append(chunks, c)
			return nil
		})
		require.NoError(t, err)

		assert.True(t, res.UsedFallback)
		require.Len(t, chunks, 1)
		assert.Equal(t, res.Answer, chunks[0])
	})

	t.Run("failure mid-stream is returned", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models: app.NewModelCatalog(streaming(func(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
				_ = onChunk("partial")
				return "", errors.New("connection reset")
			})),
		})

		_, err := svc.StreamAsk(context.Background(), app.AskInput{Question: "hi"}, func(string) error { return nil })
		require.EqualError(t, err, "connection reset")
	})

	t.Run("empty stream emits the placeholder answer", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models: app.NewModelCatalog(streaming(func(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
				return "", nil
			})),
		})

		var chunks []string
		res, err := svc.StreamAsk(context.Background(), app.AskInput{Question: "q"}, func(c string) error {
			chunks = append(chunks, c)
			return nil
		})
		require.NoError(t, err)

		assert.False(t, res.UsedFallback)
		assert.Contains(t, res.Answer, "trouble generating a response")
		assert.Equal(t, []string{res.Answer}, chunks)
	})

	t.Run("non-streaming model emits one chunk", func(t *testing.T) {
		t.Parallel()

		svc := app.NewAssistantService(app.AssistantServiceDeps{
			Models: app.NewModelCatalog(app.ModelEntry{Key: "k", Name: "k", Generator: answering("k", "whole answer", nil)}),
		})

		var chunks []string
		_, err := svc.StreamAsk(context.Background(), app.AskInput{Question: "q"}, func(c string) error {
			chunks = append(chunks, c)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"whole answer"}, chunks)
	})
}
