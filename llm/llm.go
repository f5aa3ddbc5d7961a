// Package llm implements the low-level generation client: one LLM per
// endpoint identity, wrapping a provider adapter with HTTP transport,
// retries and error classification.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/providers"
	"github.com/promptforge/promptforge/utils"
)

// LLM is the interface for a single endpoint's generation client.
type LLM interface {
	Generate(ctx context.Context, req *providers.Request, options map[string]any) (*providers.Response, error)
	Endpoint() config.Endpoint
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)
}

// LLMImpl is the standard implementation over an HTTP provider.
type LLMImpl struct {
	Provider   providers.Provider
	Options    map[string]any
	client     *http.Client
	logger     utils.Logger
	endpoint   config.Endpoint
	maxRetries int
	retryDelay time.Duration
}

// NewLLM builds a client for the endpoint using the given registry.
// An unknown provider name is a configuration error.
func NewLLM(cfg *config.Config, endpoint config.Endpoint, logger utils.Logger, registry *providers.ProviderRegistry) (LLM, error) {
	extraHeaders := make(map[string]string, len(cfg.ExtraHeaders))
	for k, v := range cfg.ExtraHeaders {
		extraHeaders[k] = v
	}

	provider, err := registry.Get(endpoint.Provider, cfg.APIKeys[endpoint.Provider], endpoint.Model, extraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeConfiguration, "failed to create provider", err)
	}
	provider.SetDefaultOptions(cfg)
	provider.SetLogger(logger)

	return &LLMImpl{
		Provider: provider,
		Options:  make(map[string]any),
		// Per-call deadlines come from the caller's context, so the
		// transport itself carries no timeout.
		client:     &http.Client{},
		logger:     logger,
		endpoint:   endpoint,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

func (l *LLMImpl) Endpoint() config.Endpoint { return l.endpoint }

func (l *LLMImpl) SetOption(key string, value any) {
	l.Options[key] = value
	l.Provider.SetOption(key, value)
}

func (l *LLMImpl) SetLogger(logger utils.Logger) {
	l.logger = logger
	l.Provider.SetLogger(logger)
}

// Generate performs one call with retries. Retries cover transient
// transport failures and retryable HTTP statuses; the caller's context
// bounds the whole attempt sequence including backoff waits.
func (l *LLMImpl) Generate(ctx context.Context, req *providers.Request, options map[string]any) (*providers.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			l.logger.Debug("retrying request", "provider", l.Provider.Name(), "attempt", attempt)
			if err := l.wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := l.attempt(ctx, req, options)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var llmErr *LLMError
		if errors.As(err, &llmErr) {
			switch llmErr.Type {
			case ErrorTypeTimeout, ErrorTypeCanceled:
				// The context is gone, so further attempts cannot
				// succeed either.
				return nil, err
			}
			if !retryable(llmErr) {
				return nil, err
			}
		}
		l.logger.Warn("request failed", "provider", l.Provider.Name(), "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

func retryable(err *LLMError) bool {
	switch err.Type {
	case ErrorTypeRateLimit, ErrorTypeAPI, ErrorTypeResponse:
		return true
	default:
		return false
	}
}

func (l *LLMImpl) wait(ctx context.Context) error {
	timer := time.NewTimer(l.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return classifyContextErr(ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (l *LLMImpl) attempt(ctx context.Context, req *providers.Request, options map[string]any) (*providers.Response, error) {
	body, err := l.Provider.PrepareRequest(req, options)
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Provider.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range l.Provider.Headers() {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportErr(ctx, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus(httpResp.StatusCode, respBody)
	}

	resp, err := l.Provider.ParseResponse(respBody)
	if err != nil {
		return nil, NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}
	return resp, nil
}

func classifyStatus(status int, body []byte) *LLMError {
	msg := fmt.Sprintf("API error: status %d: %s", status, string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return NewLLMError(ErrorTypeRateLimit, msg, nil)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewLLMError(ErrorTypeAuthentication, msg, nil)
	case status >= 500:
		return NewLLMError(ErrorTypeAPI, msg, nil)
	default:
		return NewLLMError(ErrorTypeInvalidInput, msg, nil)
	}
}

func classifyTransportErr(ctx context.Context, err error) *LLMError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return classifyContextErr(ctxErr)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewLLMError(ErrorTypeTimeout, "request timed out", err)
	}
	return NewLLMError(ErrorTypeRequest, "request failed", err)
}

func classifyContextErr(err error) *LLMError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMError(ErrorTypeTimeout, "request timed out", err)
	}
	return NewLLMError(ErrorTypeCanceled, "request canceled", err)
}
