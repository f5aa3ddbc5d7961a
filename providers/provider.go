// Package providers implements the endpoint client adapters: one
// Provider per remote text-generation API shape. The rest of the
// engine talks to providers only through this interface and never
// inspects vendor-specific formats.
package providers

import (
	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/utils"
)

// Message is one turn of a chat-style payload.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the provider-agnostic payload of one generation call.
// Exactly one of Prompt or Messages is populated.
type Request struct {
	Prompt   string
	Messages []Message
}

// IsMessages reports whether the request carries an ordered turn list
// rather than a single prompt.
func (r *Request) IsMessages() bool {
	return len(r.Messages) > 0
}

// Usage reports unit counts for one call. Estimated is set when the
// provider did not report usage and the counts were derived from the
// payload instead.
type Usage struct {
	InputTokens  int  `json:"input_tokens"`
	OutputTokens int  `json:"output_tokens"`
	TotalTokens  int  `json:"total_tokens"`
	Estimated    bool `json:"estimated,omitempty"`
}

// Response is the parsed output of one generation call.
type Response struct {
	Text  string
	Usage Usage
}

// Provider defines the interface every endpoint client adapter must
// implement.
type Provider interface {
	Name() string
	Endpoint() string
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.Config)
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)

	PrepareRequest(req *Request, options map[string]any) ([]byte, error)
	ParseResponse(body []byte) (*Response, error)
}

// ProviderConstructor builds a provider instance. Each implementation
// registers one of these with the registry.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider
