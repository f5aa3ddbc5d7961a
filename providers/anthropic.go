package providers

import (
	"encoding/json"
	"fmt"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/utils"
)

// AnthropicProvider speaks the Anthropic messages wire format.
type AnthropicProvider struct {
	apiKey       string
	model        string
	endpoint     string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
}

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

func NewAnthropicProvider(apiKey, model string, extraHeaders map[string]string) Provider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &AnthropicProvider{
		apiKey:       apiKey,
		model:        model,
		endpoint:     anthropicEndpoint,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewLogger(utils.LogLevelWarn),
	}
}

func (p *AnthropicProvider) Name() string     { return "anthropic" }
func (p *AnthropicProvider) Endpoint() string { return p.endpoint }

func (p *AnthropicProvider) SetLogger(logger utils.Logger) { p.logger = logger }

func (p *AnthropicProvider) SetOption(key string, value any) {
	p.options[key] = value
}

func (p *AnthropicProvider) SetDefaultOptions(cfg *config.Config) {
	p.options["temperature"] = cfg.Temperature
	p.options["max_tokens"] = cfg.MaxTokens
	p.options["top_p"] = cfg.TopP
	if url, ok := cfg.BaseURLs["anthropic"]; ok && url != "" {
		p.endpoint = url
	}
}

func (p *AnthropicProvider) SetExtraHeaders(extraHeaders map[string]string) {
	p.extraHeaders = extraHeaders
}

func (p *AnthropicProvider) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *AnthropicProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	// The messages API rejects a "system" role inside the turn list,
	// so a leading system turn moves to the top-level field.
	var system string
	messages := req.Messages
	if !req.IsMessages() {
		messages = []Message{{Role: "user", Content: req.Prompt}}
	} else if messages[0].Role == "system" {
		system = messages[0].Content
		messages = messages[1:]
	}

	body := map[string]any{
		"model":    p.model,
		"messages": messages,
	}
	if system != "" {
		body["system"] = system
	}
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range options {
		body[k] = v
	}
	return json.Marshal(body)
}

func (p *AnthropicProvider) ParseResponse(body []byte) (*Response, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
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
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("response contained no content blocks")
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			text += block.Text
		}
	}

	return &Response{
		Text: text,
		Usage: Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
