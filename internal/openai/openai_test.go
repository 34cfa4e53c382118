package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	baseURL string
	token   string
}

func (c testConfig) GetBaseURL(provider string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%s base URL is not configured", provider)
	}
	return c.baseURL, nil
}

func (c testConfig) GetToken(provider string) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("%s token is not configured", provider)
	}
	return c.token, nil
}

func (c testConfig) GetRequestTimeout() time.Duration {
	return 5 * time.Second
}

func TestChat(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "gpt-4o",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "Feature: Login"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer server.Close()

	p, err := NewProvider(testConfig{baseURL: server.URL + "/v1", token: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())

	temperature := float32(0.5)
	seed := 7
	res, err := p.Chat(context.Background(), &llm.ChatRequest{
		Model: "gpt-4o",
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "story"},
			{Role: llm.RoleUser, Content: "instruction"},
		},
		Temperature: &temperature,
		Seed:        &seed,
	})
	require.NoError(t, err)

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "chatcmpl-1", res.ID)
	assert.Equal(t, llm.RoleAssistant, res.Choices[0].Message.Role)
	assert.Equal(t, "Feature: Login", res.Choices[0].Message.Content)
	assert.Equal(t, "stop", res.Choices[0].FinishReason)
	assert.Equal(t, 15, res.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o", got["model"])
	assert.InDelta(t, 0.5, got["temperature"], 1e-6)
	assert.EqualValues(t, 7, got["seed"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "story", messages[0].(map[string]any)["content"])
}

func TestChatOmitsUnsetSampling(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	p, err := NewProvider(testConfig{baseURL: server.URL, token: "k"})
	require.NoError(t, err)

	_, err = p.Chat(context.Background(), &llm.ChatRequest{
		Model:    "gpt-4o",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.NotContains(t, got, "temperature")
	assert.NotContains(t, got, "seed")
	assert.NotContains(t, got, "max_tokens")
}

func TestChatSendsZeroTemperature(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	p, err := NewProvider(testConfig{baseURL: server.URL, token: "k"})
	require.NoError(t, err)

	temperature := float32(0)
	seed := 7
	_, err = p.Chat(context.Background(), &llm.ChatRequest{
		Model:       "gpt-4o",
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Temperature: &temperature,
		Seed:        &seed,
	})
	require.NoError(t, err)

	require.Contains(t, got, "temperature")
	assert.InDelta(t, 0, got["temperature"], 1e-6)
	assert.EqualValues(t, 7, got["seed"])
}

func TestChatErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"unauthorized", http.StatusUnauthorized, false},
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "nope", "type": "error"},
				})
			}))
			defer server.Close()

			p, err := NewCompatibleProvider("deepseek", testConfig{baseURL: server.URL, token: "k"})
			require.NoError(t, err)

			_, err = p.Chat(context.Background(), &llm.ChatRequest{
				Model:    "deepseek-chat",
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
			})
			require.Error(t, err)

			var apiErr *llm.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, "deepseek", apiErr.Provider)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.retryable, llm.IsRetryable(err))
		})
	}
}

func TestNewProviderRequiresToken(t *testing.T) {
	_, err := NewProvider(testConfig{baseURL: "http://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[
			{"id":"gpt-4o","object":"model","owned_by":"system"},
			{"id":"gpt-4o-mini","object":"model","owned_by":"system"}
		]}`))
	}))
	defer server.Close()

	p, err := NewProvider(testConfig{baseURL: server.URL + "/v1", token: "test-key"})
	require.NoError(t, err)

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, llm.ModelInfo{ID: "gpt-4o", Description: "owned by system", IsDefault: true}, models[0])
	assert.False(t, models[1].IsDefault)
}
