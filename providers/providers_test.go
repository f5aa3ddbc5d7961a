package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/promptforge/config"
)

func TestOpenAIPrepareRequest(t *testing.T) {
	p := NewOpenAIProvider("key", "gpt-4o-mini", nil)

	t.Run("single prompt becomes a user turn", func(t *testing.T) {
		body, err := p.PrepareRequest(&Request{Prompt: "hello"}, nil)
		require.NoError(t, err)

		var decoded struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "gpt-4o-mini", decoded.Model)
		require.Len(t, decoded.Messages, 1)
		assert.Equal(t, "user", decoded.Messages[0].Role)
		assert.Equal(t, "hello", decoded.Messages[0].Content)
	})

	t.Run("call options override provider options", func(t *testing.T) {
		p.SetOption("temperature", 0.7)
		body, err := p.PrepareRequest(&Request{Prompt: "hello"}, map[string]any{"temperature": 0.1})
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, 0.1, decoded["temperature"])
	})
}

func TestOpenAIParseResponse(t *testing.T) {
	p := NewOpenAIProvider("key", "gpt-4o-mini", nil)

	t.Run("valid body", func(t *testing.T) {
		body := `{"choices":[{"message":{"content":"hi"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`
		resp, err := p.ParseResponse([]byte(body))
		require.NoError(t, err)
		assert.Equal(t, "hi", resp.Text)
		assert.Equal(t, 4, resp.Usage.TotalTokens)
	})

	t.Run("error body", func(t *testing.T) {
		_, err := p.ParseResponse([]byte(`{"error":{"message":"rate limited"}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited")
	})

	t.Run("no choices", func(t *testing.T) {
		_, err := p.ParseResponse([]byte(`{"choices":[]}`))
		assert.Error(t, err)
	})
}

func TestAnthropicPrepareRequest(t *testing.T) {
	p := NewAnthropicProvider("key", "claude-3-5-haiku-latest", nil)

	t.Run("system turn hoisted", func(t *testing.T) {
		body, err := p.PrepareRequest(&Request{Messages: []Message{
			{Role: "system", Content: "be terse"},
			{Role: "user", Content: "hello"},
		}}, nil)
		require.NoError(t, err)

		var decoded struct {
			System   string    `json:"system"`
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "be terse", decoded.System)
		require.Len(t, decoded.Messages, 1)
		assert.Equal(t, "user", decoded.Messages[0].Role)
	})

	t.Run("headers carry the key and version", func(t *testing.T) {
		headers := p.Headers()
		assert.Equal(t, "key", headers["x-api-key"])
		assert.NotEmpty(t, headers["anthropic-version"])
	})
}

func TestAnthropicParseResponse(t *testing.T) {
	p := NewAnthropicProvider("key", "claude-3-5-haiku-latest", nil)

	body := `{"content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":3,"output_tokens":1}}`
	resp, err := p.ParseResponse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text)
	assert.Equal(t, 4, resp.Usage.TotalTokens)

	_, err = p.ParseResponse([]byte(`{"error":{"message":"overloaded"}}`))
	assert.Error(t, err)
}

func TestProviderRegistry(t *testing.T) {
	t.Run("known providers", func(t *testing.T) {
		registry := NewProviderRegistry()
		for _, name := range []string{"openai", "anthropic", "groq", "deepseek", "openrouter"} {
			p, err := registry.Get(name, "key", "model", nil)
			require.NoError(t, err, name)
			assert.Equal(t, name, p.Name())
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		registry := NewProviderRegistry()
		_, err := registry.Get("bogus", "key", "model", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})

	t.Run("custom registration", func(t *testing.T) {
		registry := NewProviderRegistry()
		registry.Register("local", func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAICompatibleProvider("local", "http://localhost:8080/v1/chat/completions", apiKey, model, extraHeaders)
		})
		p, err := registry.Get("local", "", "some-model", nil)
		require.NoError(t, err)
		assert.Equal(t, "local", p.Name())
	})

	t.Run("restricted registry", func(t *testing.T) {
		registry := NewProviderRegistry("openai")
		_, err := registry.Get("anthropic", "key", "model", nil)
		assert.Error(t, err)
	})
}

func TestBaseURLOverride(t *testing.T) {
	cfg := config.NewConfig()
	cfg.BaseURLs["openai"] = "http://proxy.internal/v1/chat/completions"

	p := NewOpenAIProvider("key", "gpt-4o-mini", nil)
	p.SetDefaultOptions(cfg)
	assert.Equal(t, "http://proxy.internal/v1/chat/completions", p.Endpoint())
}
