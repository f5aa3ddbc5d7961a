// Package evaluator scores model responses against expected outputs.
// The primary path asks a judge endpoint for per-dimension scores; a
// deterministic local path covers configurations without a judge and
// every judge failure, so scoring itself never fails.
package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/executor"
	"github.com/promptforge/promptforge/jsonrepair"
	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/utils"
)

const (
	judgeTemperature = 0.2
	judgeMaxTokens   = 1500
)

// Evaluator scores tasks. Safe for concurrent use.
type Evaluator struct {
	cfg      *config.Config
	exec     *executor.Executor
	counter  *TokenCounter
	criteria Criteria
	logger   utils.Logger
}

type Option func(*Evaluator)

// WithCriteria replaces the default scoring dimensions.
func WithCriteria(criteria Criteria) Option {
	return func(e *Evaluator) {
		if len(criteria) > 0 {
			e.criteria = criteria
		}
	}
}

func New(cfg *config.Config, exec *executor.Executor, logger utils.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:      cfg,
		exec:     exec,
		counter:  NewTokenCounter(),
		criteria: DefaultCriteria(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Criteria returns the active scoring dimensions.
func (e *Evaluator) Criteria() Criteria { return e.criteria }

// Score evaluates one task. The result is always usable: any judge
// failure falls back to local scoring with the failure recorded in
// Error.
func (e *Evaluator) Score(ctx context.Context, task Task) *Evaluation {
	results := e.ScoreBatch(ctx, []Task{task}, nil)
	return results[0]
}

// ScoreBatch evaluates tasks concurrently through the dispatcher when
// a judge is configured, locally otherwise. One evaluation per task,
// in task order.
func (e *Evaluator) ScoreBatch(ctx context.Context, tasks []Task, progress executor.ProgressFunc) []*Evaluation {
	evals := make([]*Evaluation, len(tasks))
	if len(tasks) == 0 {
		return evals
	}

	judge, ok := e.cfg.JudgeEndpoint()
	if !ok {
		for i, task := range tasks {
			evals[i] = e.localEvaluation(task)
			if progress != nil {
				progress(i+1, len(tasks))
			}
		}
		return evals
	}

	requests := make([]executor.CallRequest, len(tasks))
	temperature := judgeTemperature
	maxTokens := judgeMaxTokens
	for i, task := range tasks {
		requests[i] = executor.CallRequest{
			ID:       fmt.Sprintf("judge-%d", i),
			Endpoint: judge,
			Prompt:   e.judgePrompt(task),
			Sampling: &executor.SamplingParams{
				Temperature: &temperature,
				MaxTokens:   &maxTokens,
			},
		}
	}

	results, err := e.exec.Dispatch(ctx, requests, progress)
	if err != nil {
		// The judge endpoint cannot be resolved at all. Score locally
		// and record why.
		e.logger.Warn("judge endpoint unusable, scoring locally", "error", err)
		for i, task := range tasks {
			eval := e.localEvaluation(task)
			eval.Error = err.Error()
			evals[i] = eval
		}
		return evals
	}

	for i, result := range results {
		if result.Err != nil {
			eval := e.localEvaluation(tasks[i])
			eval.Error = result.Err.Error()
			evals[i] = eval
			continue
		}
		evals[i] = e.parseJudgeReply(tasks[i], result.Text)
	}
	return evals
}

// parseJudgeReply decodes and validates a judge response, falling back
// to local scoring when the reply is unusable.
func (e *Evaluator) parseJudgeReply(task Task, text string) *Evaluation {
	var reply judgeReply
	if err := jsonrepair.Parse(text, &reply); err != nil {
		return e.fallbackWithError(task, fmt.Sprintf("unparseable judge reply: %v", err))
	}
	if err := llm.Validate(&reply); err != nil {
		return e.fallbackWithError(task, fmt.Sprintf("invalid judge reply: %v", err))
	}

	scores := make(map[string]float64, len(reply.Scores))
	for _, crit := range e.criteria {
		score, ok := reply.Scores[crit.Name]
		if !ok {
			return e.fallbackWithError(task, fmt.Sprintf("judge reply missing dimension %q", crit.Name))
		}
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		scores[crit.Name] = score
	}

	eval := &Evaluation{
		Scores:   scores,
		Feedback: reply.Feedback,
	}
	e.foldEfficiency(eval, task)
	return eval
}

func (e *Evaluator) fallbackWithError(task Task, reason string) *Evaluation {
	e.logger.Debug("falling back to local scoring", "reason", reason)
	eval := e.localEvaluation(task)
	eval.Error = reason
	return eval
}

// foldEfficiency computes the prompt-size dimension locally, adds it
// unless the scores already carry one, and recomputes the overall
// score as the mean of all dimensions.
func (e *Evaluator) foldEfficiency(eval *Evaluation, task Task) {
	if _, ok := eval.Scores[EfficiencyDimension]; !ok && task.Prompt != "" {
		tokens := e.counter.Count(task.Prompt)
		eval.Scores[EfficiencyDimension] = EfficiencyScore(tokens, e.cfg.IdealPromptTokens, e.cfg.MaxPromptTokens)
	}

	var sum float64
	for _, score := range eval.Scores {
		sum += score
	}
	if len(eval.Scores) > 0 {
		eval.Overall = sum / float64(len(eval.Scores))
	}
}

// judgePrompt renders the scoring instructions for one task.
func (e *Evaluator) judgePrompt(task Task) string {
	var sb strings.Builder
	sb.WriteString("You are an expert evaluator. Score the response against the expected output on each criterion from 0 to 100.\n\n")

	sb.WriteString("Criteria:\n")
	for _, crit := range e.criteria {
		fmt.Fprintf(&sb, "- %s: %s\n", crit.Name, crit.Description)
	}

	if task.Input != "" {
		fmt.Fprintf(&sb, "\nInput:\n%s\n", task.Input)
	}
	fmt.Fprintf(&sb, "\nExpected output:\n%s\n", task.Expected)
	fmt.Fprintf(&sb, "\nActual response:\n%s\n", task.Response)

	sb.WriteString("\nReply with JSON only, matching this schema exactly:\n")
	if schema, err := llm.GenerateJSONSchema(judgeReply{}); err == nil {
		sb.Write(schema)
		sb.WriteString("\n")
	}
	sb.WriteString("\nThe \"scores\" object must contain exactly the criteria names listed above.")
	return sb.String()
}
