package ai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/ai"
)

func TestOpenAICompatibleClient_Complete(t *testing.T) {
	t.Parallel()

	t.Run("returns first choice", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-test", body["model"])
			assert.Equal(t, false, body["stream"])

			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello there"}}]}`))
		}))
		t.Cleanup(srv.Close)

		client := ai.NewOpenAICompatibleClient()
		answer, err := client.Complete(context.Background(), ai.ChatConfig{
			BaseURL: srv.URL + "/v1/",
			APIKey:  "sk-test",
			Model:   "gpt-test",
		}, []ai.ChatMessage{{Role: "user", Content: "hi"}})

		require.NoError(t, err)
		assert.Equal(t, "hello there", answer)
	})

	t.Run("reports error status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte("slow down"))
		}))
		t.Cleanup(srv.Close)

		_, err := ai.NewOpenAICompatibleClient().Complete(context.Background(), ai.ChatConfig{BaseURL: srv.URL, Model: "m"}, nil)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "slow down")

		var apiErr *ai.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	})
}

func TestOpenAICompatibleClient_StreamComplete(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, `: keep-alive`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"lo"}}]}`)
		fmt.Fprintln(w, `data: [DONE]`)
		fmt.Fprintln(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`)
	}))
	t.Cleanup(srv.Close)

	var chunks []string
	full, err := ai.NewOpenAICompatibleClient().StreamComplete(context.Background(), ai.ChatConfig{BaseURL: srv.URL, Model: "m"}, nil,
		func(chunk string) error {
			chunks = append(chunks, chunk)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestOpenAICompatibleClient_EmbedBatch(t *testing.T) {
	t.Parallel()

	t.Run("orders vectors by index", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
		}))
		t.Cleanup(srv.Close)

		vectors, err := ai.NewOpenAICompatibleClient().EmbedBatch(context.Background(),
			ai.EmbeddingConfig{BaseURL: srv.URL, Model: "all-MiniLM-L6-v2"}, []string{"first", "second"})

		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		_, err := ai.NewOpenAICompatibleClient().EmbedBatch(context.Background(),
			ai.EmbeddingConfig{BaseURL: "http://127.0.0.1:1"}, []string{"ok", "  "})

		require.Error(t, err)
	})

	t.Run("rejects repeated index", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[1,0]},{"index":1,"embedding":[0,1]}]}`))
		}))
		t.Cleanup(srv.Close)

		_, err := ai.NewOpenAICompatibleClient().EmbedBatch(context.Background(),
			ai.EmbeddingConfig{BaseURL: srv.URL}, []string{"a", "b"})

		require.ErrorContains(t, err, "no vector for input 0")
	})

	t.Run("rejects count mismatch", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
		}))
		t.Cleanup(srv.Close)

		_, err := ai.NewOpenAICompatibleClient().EmbedBatch(context.Background(),
			ai.EmbeddingConfig{BaseURL: srv.URL}, []string{"a", "b"})

		require.Error(t, err)
	})
}

func TestOpenAIModel_NotConfigured(t *testing.T) {
	t.Parallel()

	m := ai.NewOpenAIModel(ai.NewOpenAICompatibleClient(), ai.ChatConfig{Model: "gpt"})
	_, err := m.Generate(context.Background(), nil)
	require.ErrorIs(t, err, ai.ErrNotConfigured)
	assert.Equal(t, "gpt", m.Name())
}

func TestPerplexityClient_Search(t *testing.T) {
	t.Parallel()

	t.Run("returns answer and citations", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer pplx", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "sonar", body["model"])
			assert.Equal(t, "month", body["search_recency_filter"])

			_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" It rained. "}}],"citations":["https://a.example","https://b.example"]}`))
		}))
		t.Cleanup(srv.Close)

		client := ai.NewPerplexityClient(srv.URL, "pplx", "")
		require.True(t, client.Available())

		result, err := client.Search(context.Background(), "weather today")
		require.NoError(t, err)
		assert.Equal(t, "It rained.", result.Answer)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, result.Sources)
	})

	t.Run("unavailable without key", func(t *testing.T) {
		t.Parallel()

		client := ai.NewPerplexityClient("", "", "")
		assert.False(t, client.Available())

		_, err := client.Search(context.Background(), "q")
		require.ErrorIs(t, err, ai.ErrNotConfigured)
	})
}
