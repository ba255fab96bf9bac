package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homerank/internal/config"
)

func testOpenAIConfig(base string) *config.OpenAIConfig {
	return &config.OpenAIConfig{
		APIKey:              "sk-test",
		APIBase:             base,
		ChatModel:           "chat-test",
		ChatTemperature:     0.3,
		EmbeddingModel:      "embed-test",
		EmbeddingDimensions: 3,
		BatchSize:           2,
		Timeout:             5,
		Enabled:             true,
	}
}

func TestOpenAIClient_Disabled(t *testing.T) {
	cfg := testOpenAIConfig("http://127.0.0.1:0")
	cfg.Enabled = false
	c := NewOpenAIClient(cfg, nil)

	assert.False(t, c.IsEnabled())
	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrAIDisabled)
	_, err = c.CreateEmbeddings(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrAIDisabled)
}

func TestOpenAIClient_ChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chat-test", req.Model)
		assert.InDelta(t, 0.3, req.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"报告"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(testOpenAIConfig(srv.URL), nil)
	resp, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "报告", resp.Choices[0].Message.Content)
}

func TestOpenAIClient_CreateEmbeddingsBatchesAndOrders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "embed-test", req.Model)
		assert.LessOrEqual(t, len(req.Input), 2)

		// Answer in reverse order; the client must reorder by index.
		var resp EmbeddingResponse
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{Embedding: []float32{float32(len(req.Input[i])), 0, 0}, Index: i})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := NewOpenAIClient(testOpenAIConfig(srv.URL), nil)
	vecs, err := c.CreateEmbeddings(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{1, 0, 0}, vecs[0])
	assert.Equal(t, []float32{2, 0, 0}, vecs[1])
	assert.Equal(t, []float32{3, 0, 0}, vecs[2])

	e := NewOpenAIEmbedder(c)
	assert.Equal(t, "embed-test", e.ModelName())
	assert.Equal(t, 3, e.Dimensions())
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewOpenAIClient(testOpenAIConfig(srv.URL), nil)
	_, err := c.CreateEmbeddings(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestOpenAIClient_MissingEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0,0],"index":0}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(testOpenAIConfig(srv.URL), nil)
	_, err := c.CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing embedding 1")
}
