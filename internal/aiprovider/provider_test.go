package aiprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/domain"
)

func TestOpenAIProvider_Call(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"executiveSummary\":\"ok\"}"}}],"usage":{"prompt_tokens":120,"completion_tokens":30}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "sk-test", "", 5*time.Second, zap.NewNop())
	c, err := p.Call(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"executiveSummary":"ok"}`, c.Text)
	assert.Equal(t, 150, c.TokensUsed)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, maxOutputTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
}

func TestOpenAIProvider_ErrorEnvelope(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Incorrect API key"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "bad", "", 5*time.Second, zap.NewNop())
	_, err := p.Call(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "invalid_request_error", pe.Type)
	assert.Equal(t, "Incorrect API key", pe.Message)
	assert.Equal(t, 1, calls, "provider calls are never retried")
}

func TestClaudeProvider_Call(t *testing.T) {
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"part one "},{"type":"tool_use"},{"type":"text","text":"part two"}],"usage":{"input_tokens":200,"output_tokens":50}}`))
	}))
	defer srv.Close()

	p := NewClaudeProvider(srv.URL+"/", "ak-test", "", 5*time.Second, zap.NewNop())
	c, err := p.Call(context.Background(), "system prompt", "user message")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", c.Text)
	assert.Equal(t, 250, c.TokensUsed)

	assert.Equal(t, DefaultClaudeModel, got.Model)
	assert.Equal(t, "system prompt", got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestClaudeProvider_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	p := NewClaudeProvider(srv.URL, "k", "", 5*time.Second, zap.NewNop())
	_, err := p.Call(context.Background(), "s", "u")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusBadGateway, pe.StatusCode)
	assert.Equal(t, "upstream unavailable", pe.Message)
}

func TestProvider_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOpenAIProvider(url, "k", "", time.Second, zap.NewNop())
	_, err := p.Call(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrProvider))
}

type namedProvider string

func (n namedProvider) Name() string { return string(n) }
func (n namedProvider) Call(context.Context, string, string) (*Completion, error) {
	return &Completion{Text: string(n)}, nil
}

func TestRegistry_Resolve(t *testing.T) {
	reg := NewRegistry(ProviderOpenAI, namedProvider(ProviderOpenAI), namedProvider(ProviderClaude))

	assert.Equal(t, ProviderClaude, reg.Resolve("claude").Name())
	assert.Equal(t, ProviderClaude, reg.Resolve(" Claude ").Name())
	assert.Equal(t, ProviderOpenAI, reg.Resolve("gemini").Name())
	assert.Equal(t, ProviderOpenAI, reg.Resolve("").Name())
	assert.Equal(t, ProviderOpenAI, reg.Default().Name())
	assert.Equal(t, []string{"claude", "openai"}, reg.Names())

	empty := NewRegistry(ProviderOpenAI)
	assert.Nil(t, empty.Resolve("claude"))
}

func TestRegistry_UnrecognizedDefaultFallsBackToOpenAI(t *testing.T) {
	reg := NewRegistry("gemini", namedProvider(ProviderOpenAI), namedProvider(ProviderClaude))

	assert.Equal(t, ProviderOpenAI, reg.DefaultName())
	require.NotNil(t, reg.Resolve(""))
	assert.Equal(t, ProviderOpenAI, reg.Resolve("").Name())
	assert.Equal(t, ProviderOpenAI, reg.Default().Name())
}

func TestRegistry_DefaultNameIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(" Claude ", namedProvider(ProviderOpenAI), namedProvider(ProviderClaude))

	assert.Equal(t, ProviderClaude, reg.DefaultName())
	assert.Equal(t, ProviderClaude, reg.Resolve("").Name())
	assert.Equal(t, ProviderClaude, reg.Resolve("unknown").Name())
}

func TestRegistry_DefaultWithoutKeyUsesOpenAI(t *testing.T) {
	reg := NewRegistry(ProviderClaude, namedProvider(ProviderOpenAI))

	require.NotNil(t, reg.Default())
	assert.Equal(t, ProviderOpenAI, reg.Default().Name())
}

func TestReadProviderError_TruncatesByRunes(t *testing.T) {
	body := strings.Repeat("é", 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "k", "", 5*time.Second, zap.NewNop())
	_, err := p.Call(context.Background(), "s", "u")

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.True(t, utf8.ValidString(pe.Message))
	assert.Equal(t, maxErrorBodyRunes, utf8.RuneCountInString(pe.Message))
}
