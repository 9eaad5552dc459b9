package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/brokerdesk/internal/core/domain"
	"github.com/custodia-labs/brokerdesk/internal/core/ports/driven"
)

func TestParseResponses(t *testing.T) {
	text, err := ParseGenerateResponse([]byte(`{"response":" hi ","done":true}`))
	require.NoError(t, err)
	assert.Equal(t, "hi", text)

	text, err = ParseChatResponse([]byte(`{"message":{"role":"assistant","content":"yo"},"done":true}`))
	require.NoError(t, err)
	assert.Equal(t, "yo", text)

	_, err = ParseGenerateResponse([]byte(`{"done":true}`))
	assert.ErrorIs(t, err, domain.ErrUnrecognisedResponse)
	_, err = ParseChatResponse([]byte(`{"done":true}`))
	assert.ErrorIs(t, err, domain.ErrUnrecognisedResponse)
	_, err = ParseChatResponse([]byte(`{"error":"model 'x' not found"}`))
	assert.ErrorIs(t, err, domain.ErrEmbeddingProvider)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var req chatRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.False(t, req.Stream)
		assert.Nil(t, req.Options)
		assert.Len(t, req.Messages, 2)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"answer"},"done":true}`))
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL})
	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "s"}, {Role: "user", Content: "u"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
}

func TestGenerate_PassesOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req generateRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		require.NotNil(t, req.Options)
		assert.Equal(t, 50, req.Options.NumPredict)
		assert.Equal(t, []string{"END"}, req.Options.Stop)
		_, _ = w.Write([]byte(`{"response":"done"}`))
	}))
	defer srv.Close()

	out, err := NewLLMService(LLMConfig{BaseURL: srv.URL}).Generate(context.Background(), "p",
		driven.GenerateOptions{MaxTokens: 50, StopWords: []string{"END"}})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}
