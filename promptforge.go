// Package promptforge measures and improves prompts. It dispatches
// batches of generation calls across endpoints, scores the responses
// against expected outputs, and iteratively rewrites a prompt until it
// stops improving or reaches a target score.
package promptforge

import (
	"context"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/evaluator"
	"github.com/promptforge/promptforge/executor"
	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/optimizer"
	"github.com/promptforge/promptforge/providers"
	"github.com/promptforge/promptforge/utils"
)

// Re-exported types so most callers only import this package.
type (
	Config         = config.Config
	ConfigOption   = config.ConfigOption
	Endpoint       = config.Endpoint
	PromptTemplate = llm.PromptTemplate
	CallRequest    = executor.CallRequest
	CallResult     = executor.CallResult
	ProgressFunc   = executor.ProgressFunc
	Task           = evaluator.Task
	Evaluation     = evaluator.Evaluation
	Criteria       = evaluator.Criteria
	Criterion      = evaluator.Criterion
	TestCase       = optimizer.TestCase
	TestSet        = optimizer.TestSet
	Result         = optimizer.Result
	Report         = optimizer.Report
)

// Commonly used constructors and options, re-exported.
var (
	SetProvider           = config.SetProvider
	SetModel              = config.SetModel
	SetJudge              = config.SetJudge
	SetAPIKey             = config.SetAPIKey
	SetProviderAPIKey     = config.SetProviderAPIKey
	SetTimeout            = config.SetTimeout
	SetMaxRetries         = config.SetMaxRetries
	SetDefaultConcurrency = config.SetDefaultConcurrency
	SetConcurrencyLimit   = config.SetConcurrencyLimit
	SetLocalEvaluation    = config.SetLocalEvaluation
	SetLogLevel           = config.SetLogLevel

	NewPromptTemplate = llm.NewPromptTemplate
	DefaultCriteria   = evaluator.DefaultCriteria
	Summarize         = optimizer.Summarize
)

// Client is the top-level handle tying the dispatcher, evaluator and
// optimizer to one configuration.
type Client struct {
	cfg      *config.Config
	logger   utils.Logger
	registry *executor.ClientRegistry
	exec     *executor.Executor
	eval     *evaluator.Evaluator
}

// New builds a client from the environment plus options. Options apply
// after the environment, so they win.
func New(opts ...ConfigOption) (*Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := llm.Validate(cfg); err != nil {
		return nil, err
	}

	logger := utils.NewLogger(cfg.LogLevel)
	registry := executor.NewClientRegistry(cfg, logger)
	exec := executor.NewWithResolver(cfg, logger, registry)
	return &Client{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		exec:     exec,
		eval:     evaluator.New(cfg, exec, logger),
	}, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *Config { return c.cfg }

// RegisterProvider makes a custom provider routable as an endpoint.
func (c *Client) RegisterProvider(name string, constructor providers.ProviderConstructor) {
	c.registry.RegisterProvider(name, constructor)
}

// Dispatch runs a batch of generation calls, preserving request order
// in the results.
func (c *Client) Dispatch(ctx context.Context, requests []CallRequest, progress ProgressFunc) ([]CallResult, error) {
	return c.exec.Dispatch(ctx, requests, progress)
}

// Execute runs one generation call.
func (c *Client) Execute(ctx context.Context, req CallRequest) (CallResult, error) {
	return c.exec.Execute(ctx, req)
}

// Evaluate scores one response against its expected output.
func (c *Client) Evaluate(ctx context.Context, task Task) *Evaluation {
	return c.eval.Score(ctx, task)
}

// EvaluateBatch scores many responses concurrently.
func (c *Client) EvaluateBatch(ctx context.Context, tasks []Task, progress ProgressFunc) []*Evaluation {
	return c.eval.ScoreBatch(ctx, tasks, progress)
}

// Optimize improves the prompt against the given test set.
func (c *Client) Optimize(ctx context.Context, prompt *PromptTemplate, tests TestSet, opts ...optimizer.Option) (*Result, error) {
	opt := optimizer.New(c.cfg, c.exec, c.eval, c.logger, opts...)
	return opt.Run(ctx, prompt, tests)
}

// AutoOptimize improves the prompt against test cases the engine
// generates itself from the task description.
func (c *Client) AutoOptimize(ctx context.Context, prompt *PromptTemplate, taskDescription string, opts ...optimizer.Option) (*Result, error) {
	opt := optimizer.New(c.cfg, c.exec, c.eval, c.logger, opts...)
	return optimizer.NewAuto(opt).Run(ctx, prompt, taskDescription)
}
