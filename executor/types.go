package executor

import (
	"errors"
	"time"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/providers"
)

// ErrorKind is the coarse failure classification attached to a failed
// call result.
type ErrorKind string

const (
	KindTimeout       ErrorKind = "timeout"
	KindTransport     ErrorKind = "transport"
	KindCanceled      ErrorKind = "canceled"
	KindConfiguration ErrorKind = "configuration"
	KindProvider      ErrorKind = "provider"
)

// ErrorDescriptor carries a call failure inside a CallResult. Batch
// dispatch never propagates per-call failures as Go errors: a failed
// call is a result like any other, in its slot.
type ErrorDescriptor struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *ErrorDescriptor) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *ErrorDescriptor) Unwrap() error { return e.Err }

func describeError(err error) *ErrorDescriptor {
	var llmErr *llm.LLMError
	if errors.As(err, &llmErr) {
		kind := KindProvider
		switch llmErr.Type {
		case llm.ErrorTypeTimeout:
			kind = KindTimeout
		case llm.ErrorTypeCanceled:
			kind = KindCanceled
		case llm.ErrorTypeRequest:
			kind = KindTransport
		case llm.ErrorTypeConfiguration:
			kind = KindConfiguration
		}
		return &ErrorDescriptor{Kind: kind, Message: err.Error(), Err: err}
	}
	return &ErrorDescriptor{Kind: KindProvider, Message: err.Error(), Err: err}
}

// SamplingParams overrides the configured generation parameters for
// one call. Nil fields keep the defaults.
type SamplingParams struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

func (s *SamplingParams) options() map[string]any {
	if s == nil {
		return nil
	}
	opts := make(map[string]any, 3)
	if s.Temperature != nil {
		opts["temperature"] = *s.Temperature
	}
	if s.MaxTokens != nil {
		opts["max_tokens"] = *s.MaxTokens
	}
	if s.TopP != nil {
		opts["top_p"] = *s.TopP
	}
	return opts
}

// CallRequest is one unit of batch work. A zero Endpoint routes to the
// configured default. Metadata is an opaque bag echoed into the result
// untouched.
type CallRequest struct {
	ID       string              `json:"id,omitempty"`
	Endpoint config.Endpoint     `json:"endpoint,omitempty"`
	Prompt   string              `json:"prompt,omitempty"`
	Messages []providers.Message `json:"messages,omitempty"`
	Sampling *SamplingParams     `json:"sampling,omitempty"`
	Timeout  time.Duration       `json:"timeout,omitempty"`
	Metadata map[string]any      `json:"metadata,omitempty"`
}

// CallResult is the outcome of one call, in the slot of the request
// that produced it. Exactly one of Text or Err is meaningful.
type CallResult struct {
	ID       string           `json:"id,omitempty"`
	Index    int              `json:"index"`
	Endpoint config.Endpoint  `json:"endpoint"`
	Text     string           `json:"text,omitempty"`
	Err      *ErrorDescriptor `json:"error,omitempty"`
	Usage    providers.Usage  `json:"usage"`
	Duration time.Duration    `json:"duration"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// OK reports whether the call succeeded.
func (r *CallResult) OK() bool { return r.Err == nil }

// ProgressFunc observes batch completion. completed counts finished
// calls regardless of outcome. Implementations may be called from the
// dispatching goroutine's workers but never concurrently with
// themselves.
type ProgressFunc func(completed, total int)
