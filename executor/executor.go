// Package executor implements batch dispatch of generation calls with
// per-endpoint concurrency slot pools, per-call timeouts and
// order-preserving results.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/providers"
	"github.com/promptforge/promptforge/utils"
)

// Executor dispatches generation calls. It is safe for concurrent use;
// rate limiters are shared across batches so configured request rates
// hold globally, not per Dispatch call.
type Executor struct {
	cfg      *config.Config
	resolver Resolver
	logger   utils.Logger

	mutex    sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds an executor over the default client registry.
func New(cfg *config.Config, logger utils.Logger) *Executor {
	return NewWithResolver(cfg, logger, NewClientRegistry(cfg, logger))
}

// NewWithResolver builds an executor with a custom endpoint resolver.
func NewWithResolver(cfg *config.Config, logger utils.Logger, resolver Resolver) *Executor {
	return &Executor{
		cfg:      cfg,
		resolver: resolver,
		logger:   logger,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Dispatch runs all requests and returns one result per request, in
// request order. Per-call failures are reported inside their result
// slot; the returned error is non-nil only when the batch cannot start
// at all because a request routes to an unresolvable endpoint.
func (e *Executor) Dispatch(ctx context.Context, requests []CallRequest, progress ProgressFunc) ([]CallResult, error) {
	if len(requests) == 0 {
		return []CallResult{}, nil
	}

	endpoints := make([]config.Endpoint, len(requests))
	clients := make(map[config.Endpoint]Client)
	for i, req := range requests {
		endpoint := req.Endpoint
		if endpoint.IsZero() {
			endpoint = e.cfg.Endpoint()
		}
		endpoints[i] = endpoint

		if _, ok := clients[endpoint]; ok {
			continue
		}
		client, err := e.resolver.Resolve(endpoint)
		if err != nil {
			return nil, fmt.Errorf("request %d: endpoint %s: %w", i, endpoint, err)
		}
		clients[endpoint] = client
	}

	// One slot pool per endpoint identity in the batch. A goroutine
	// holds a slot for the whole duration of its call, so at most
	// ConcurrencyFor(endpoint) calls to that identity are in flight.
	slots := make(map[config.Endpoint]chan struct{}, len(clients))
	for endpoint := range clients {
		slots[endpoint] = make(chan struct{}, e.cfg.ConcurrencyFor(endpoint))
	}

	results := make([]CallResult, len(requests))
	total := len(requests)
	completed := 0
	var progressMu sync.Mutex

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func(index int, req CallRequest, endpoint config.Endpoint) {
			defer wg.Done()

			result := e.runCall(ctx, clients[endpoint], slots[endpoint], req, endpoint)
			result.Index = index
			results[index] = result

			progressMu.Lock()
			completed++
			done := completed
			if progress != nil {
				progress(done, total)
			}
			progressMu.Unlock()
		}(i, req, endpoints[i])
	}
	wg.Wait()

	return results, nil
}

// Execute runs a single request synchronously.
func (e *Executor) Execute(ctx context.Context, req CallRequest) (CallResult, error) {
	results, err := e.Dispatch(ctx, []CallRequest{req}, nil)
	if err != nil {
		return CallResult{}, err
	}
	return results[0], nil
}

func (e *Executor) runCall(ctx context.Context, client Client, slot chan struct{}, req CallRequest, endpoint config.Endpoint) CallResult {
	result := CallResult{
		ID:       req.ID,
		Endpoint: endpoint,
		Metadata: req.Metadata,
	}

	select {
	case slot <- struct{}{}:
		defer func() { <-slot }()
	case <-ctx.Done():
		result.Err = &ErrorDescriptor{Kind: KindCanceled, Message: "batch canceled while waiting for a slot", Err: ctx.Err()}
		return result
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if limiter := e.limiterFor(endpoint); limiter != nil {
		if err := limiter.Wait(callCtx); err != nil {
			result.Err = &ErrorDescriptor{Kind: KindCanceled, Message: "batch canceled while rate limited", Err: err}
			return result
		}
	}

	genReq := &providers.Request{Prompt: req.Prompt, Messages: req.Messages}
	start := time.Now()
	resp, err := client.Generate(callCtx, genReq, req.Sampling.options())
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = describeError(err)
		e.logger.Warn("call failed", "endpoint", endpoint.String(), "id", req.ID, "error", err)
		return result
	}

	result.Text = resp.Text
	result.Usage = resp.Usage
	if result.Usage.TotalTokens == 0 {
		result.Usage = estimateUsage(genReq, resp.Text)
	}
	return result
}

func (e *Executor) limiterFor(endpoint config.Endpoint) *rate.Limiter {
	if e.cfg.RequestsPerSecond <= 0 {
		return nil
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	key := endpoint.String()
	limiter, ok := e.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(e.cfg.RequestsPerSecond), 1)
		e.limiters[key] = limiter
	}
	return limiter
}

// estimateUsage approximates token counts for providers that do not
// report usage. Four characters per token is the usual rough cut.
func estimateUsage(req *providers.Request, output string) providers.Usage {
	inputLen := len(req.Prompt)
	for _, m := range req.Messages {
		inputLen += len(m.Content)
	}
	usage := providers.Usage{
		InputTokens:  inputLen / 4,
		OutputTokens: len(output) / 4,
		Estimated:    true,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	return usage
}
