package providers

import (
	"encoding/json"
	"fmt"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/utils"
)

// OpenAIProvider speaks the chat-completions wire format. Several
// vendors expose the same shape, so the registry also instantiates it
// for groq, deepseek and openrouter with a different name and endpoint.
type OpenAIProvider struct {
	name         string
	apiKey       string
	model        string
	endpoint     string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(apiKey, model string, extraHeaders map[string]string) Provider {
	return NewOpenAICompatibleProvider("openai", openAIEndpoint, apiKey, model, extraHeaders)
}

// NewOpenAICompatibleProvider creates a provider for any endpoint that
// speaks the chat-completions format.
func NewOpenAICompatibleProvider(name, endpoint, apiKey, model string, extraHeaders map[string]string) Provider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &OpenAIProvider{
		name:         name,
		apiKey:       apiKey,
		model:        model,
		endpoint:     endpoint,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewLogger(utils.LogLevelWarn),
	}
}

func (p *OpenAIProvider) Name() string     { return p.name }
func (p *OpenAIProvider) Endpoint() string { return p.endpoint }

func (p *OpenAIProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *OpenAIProvider) SetOption(key string, value any) {
	p.options[key] = value
}

func (p *OpenAIProvider) SetDefaultOptions(cfg *config.Config) {
	p.options["temperature"] = cfg.Temperature
	p.options["max_tokens"] = cfg.MaxTokens
	p.options["top_p"] = cfg.TopP
	if url, ok := cfg.BaseURLs[p.name]; ok && url != "" {
		p.endpoint = url
	}
}

func (p *OpenAIProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *OpenAIProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *OpenAIProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	messages := req.Messages
	if !req.IsMessages() {
		messages = []Message{{Role: "user", Content: req.Prompt}}
	}

	body := map[string]any{
		"model":    p.model,
		"messages": messages,
	}
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range options {
		body[k] = v
	}
	return json.Marshal(body)
}

func (p *OpenAIProvider) ParseResponse(body []byte) (*Response, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	return &Response{
		Text: resp.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
