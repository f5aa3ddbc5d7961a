// Package optimizer implements the iterative prompt search: each
// iteration measures the incumbent prompt against the test set and,
// unless it is the last one, proposes rewritten variants and measures
// those. The incumbent only ever changes for a strictly better
// candidate, so quality never regresses across iterations.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/evaluator"
	"github.com/promptforge/promptforge/executor"
	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/progress"
	"github.com/promptforge/promptforge/utils"
)

var (
	// ErrNoTestCases reports an optimization run without any test case
	// to measure against.
	ErrNoTestCases = errors.New("optimizer: test set has no cases")

	// ErrEmptyPrompt reports an optimization run over an empty prompt.
	ErrEmptyPrompt = errors.New("optimizer: prompt template is empty")
)

// Optimizer runs the iterative search.
type Optimizer struct {
	cfg    *config.Config
	exec   *executor.Executor
	eval   *evaluator.Evaluator
	logger utils.Logger

	maxIterations      int
	targetScore        float64
	candidatesPerRound int
	retryBudget        int
	strategy           string
	tracker            *progress.Tracker
	stopped            atomic.Bool

	// refresh, when set, replaces the test set at the start of each
	// iteration. The autonomous variant uses it to regenerate cases.
	refresh func(ctx context.Context, iteration int) (TestSet, error)
}

// Stop ends a running optimization after the current iteration. The
// run returns normally with the best prompt found so far.
func (o *Optimizer) Stop() { o.stopped.Store(true) }

type Option func(*Optimizer)

func WithMaxIterations(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

func WithTargetScore(score float64) Option {
	return func(o *Optimizer) { o.targetScore = score }
}

func WithCandidatesPerRound(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.candidatesPerRound = n
		}
	}
}

// WithRetryBudget sets the total generation attempts per candidate
// slot, first try included.
func WithRetryBudget(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.retryBudget = n
		}
	}
}

// WithStrategy selects the optimization focus embedded in rewrite
// requests: StrategyBalanced, StrategyAccuracy, StrategyCompleteness
// or StrategyConciseness.
func WithStrategy(strategy string) Option {
	return func(o *Optimizer) {
		if strategy != "" {
			o.strategy = strategy
		}
	}
}

// WithTracker attaches a progress tracker. The run advances it by one
// step per recorded stage.
func WithTracker(tracker *progress.Tracker) Option {
	return func(o *Optimizer) { o.tracker = tracker }
}

func New(cfg *config.Config, exec *executor.Executor, eval *evaluator.Evaluator, logger utils.Logger, opts ...Option) *Optimizer {
	o := &Optimizer{
		cfg:                cfg,
		exec:               exec,
		eval:               eval,
		logger:             logger,
		maxIterations:      DefaultMaxIterations,
		targetScore:        DefaultTargetScore,
		candidatesPerRound: DefaultCandidatesPerRound,
		retryBudget:        DefaultRetryBudget,
		strategy:           StrategyBalanced,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run optimizes the prompt against the test set. Every iteration
// appends a baseline record for the incumbent; the final allowed
// iteration stops there, it never runs the rewrite step. The returned
// error is non-nil only for unusable inputs or an unresolvable
// endpoint; every per-call failure inside the run degrades to a low or
// skipped score instead.
func (o *Optimizer) Run(ctx context.Context, prompt *llm.PromptTemplate, tests TestSet) (*Result, error) {
	if prompt == nil || strings.TrimSpace(prompt.Template) == "" {
		return nil, ErrEmptyPrompt
	}
	if o.refresh == nil && len(tests.Cases) == 0 {
		return nil, ErrNoTestCases
	}

	incumbent := prompt.Clone()
	result := &Result{InitialPrompt: prompt.Template, BestPrompt: prompt.Template}

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		if o.refresh != nil {
			refreshed, err := o.refresh(ctx, iteration)
			if err != nil {
				return nil, err
			}
			tests = refreshed
		}
		if len(tests.Cases) == 0 {
			return nil, ErrNoTestCases
		}

		start := time.Now()
		score, evals, err := o.measure(ctx, incumbent, tests)
		if err != nil {
			return nil, err
		}
		result.History = append(result.History, IterationRecord{
			Iteration:   iteration,
			Stage:       StageBaseline,
			Prompt:      incumbent.Template,
			Score:       score,
			Evaluations: evals,
			Duration:    time.Since(start),
		})
		if iteration == 1 {
			result.InitialScore = score
		}
		if iteration == 1 || score > result.BestScore {
			result.BestPrompt = incumbent.Template
			result.BestScore = score
			result.Evaluations = evals
		}
		o.step(fmt.Sprintf("measured iteration %d", iteration), map[string]any{
			"iteration": iteration,
			"score":     score,
		})
		o.logger.Info("iteration measured", "iteration", iteration, "score", score, "cases", len(tests.Cases))

		if score >= o.targetScore {
			result.TargetReached = true
			break
		}
		if iteration == o.maxIterations {
			break
		}
		if o.stopped.Load() || ctx.Err() != nil {
			break
		}

		start = time.Now()
		candidates := o.generateCandidates(ctx, incumbent, evals)
		for i := range candidates {
			if candidates[i].Text == "" {
				continue
			}
			candScore, candEvals, err := o.measure(ctx, incumbent.WithText(candidates[i].Text), tests)
			if err != nil {
				return nil, err
			}
			candidates[i].Score = candScore
			candidates[i].Evaluations = candEvals
		}

		improved := false
		roundScore := score
		if best := bestCandidate(candidates); best >= 0 {
			candidates[best].BestOfRound = true
			if candidates[best].Score > score {
				incumbent = incumbent.WithText(candidates[best].Text)
				improved = true
				roundScore = candidates[best].Score
			}
		}
		result.History = append(result.History, IterationRecord{
			Iteration:  iteration,
			Stage:      StageCandidate,
			Prompt:     incumbent.Template,
			Score:      roundScore,
			Candidates: candidates,
			Improved:   improved,
			Duration:   time.Since(start),
		})

		o.step(fmt.Sprintf("finished candidates of iteration %d", iteration), map[string]any{
			"iteration": iteration,
			"score":     roundScore,
			"improved":  improved,
		})
		o.logger.Info("candidates measured", "iteration", iteration, "score", roundScore, "improved", improved)
	}

	if o.tracker != nil {
		o.tracker.Complete("optimization finished")
	}
	return result, nil
}

func (o *Optimizer) step(description string, data map[string]any) {
	if o.tracker != nil {
		o.tracker.Update(1, description, data)
	}
}

// backoff waits the configured retry delay before another generation
// attempt. It reports false when the context ends first.
func (o *Optimizer) backoff(ctx context.Context) bool {
	if o.cfg.RetryDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(o.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func bestCandidate(candidates []Candidate) int {
	best := -1
	for i, cand := range candidates {
		if cand.Text == "" {
			continue
		}
		if best < 0 || cand.Score > candidates[best].Score {
			best = i
		}
	}
	return best
}

// measure runs the prompt over every test case and scores the
// responses. The score is the mean overall across cases.
func (o *Optimizer) measure(ctx context.Context, prompt *llm.PromptTemplate, tests TestSet) (float64, []*evaluator.Evaluation, error) {
	requests := make([]executor.CallRequest, len(tests.Cases))
	for i, tc := range tests.Cases {
		rendered, err := renderCase(prompt, tests.Variables, tc)
		if err != nil {
			return 0, nil, err
		}
		requests[i] = executor.CallRequest{ID: tc.ID, Prompt: rendered}
	}

	results, err := o.exec.Dispatch(ctx, requests, nil)
	if err != nil {
		return 0, nil, err
	}

	tasks := make([]evaluator.Task, len(tests.Cases))
	for i, tc := range tests.Cases {
		tasks[i] = evaluator.Task{
			Prompt:   prompt.Template,
			Input:    tc.Input,
			Expected: tc.Expected,
			Response: results[i].Text,
		}
	}

	evals := o.eval.ScoreBatch(ctx, tasks, nil)
	var sum float64
	for i, eval := range evals {
		if results[i].Err != nil && eval.Error == "" {
			eval.Error = results[i].Err.Error()
		}
		sum += eval.Overall
	}
	return sum / float64(len(evals)), evals, nil
}

// renderCase substitutes the test case into the prompt. A prompt with
// an input placeholder receives the case inline; one without gets the
// input appended after the rendered body.
func renderCase(prompt *llm.PromptTemplate, shared map[string]string, tc TestCase) (string, error) {
	vars := make(map[string]string, len(shared)+len(tc.Variables)+1)
	for k, v := range shared {
		vars[k] = v
	}
	for k, v := range tc.Variables {
		vars[k] = v
	}
	vars["input"] = tc.Input

	rendered, err := prompt.Render(vars)
	if err != nil {
		return "", fmt.Errorf("case %q: %w", tc.ID, err)
	}
	if !hasPlaceholder(prompt, "input") && tc.Input != "" {
		rendered = rendered + "\n\n" + tc.Input
	}
	return rendered, nil
}

func hasPlaceholder(prompt *llm.PromptTemplate, name string) bool {
	for _, p := range prompt.Placeholders() {
		if p == name {
			return true
		}
	}
	return false
}

// feedbackSummary condenses the incumbent's evaluations into guidance
// for the rewrite prompt: the weakest dimensions plus any judge
// feedback.
func feedbackSummary(evals []*evaluator.Evaluation) string {
	if len(evals) == 0 {
		return ""
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var feedback []string
	for _, eval := range evals {
		for dim, score := range eval.Scores {
			sums[dim] += score
			counts[dim]++
		}
		if eval.Feedback != "" && !eval.Fallback && len(feedback) < 3 {
			feedback = append(feedback, eval.Feedback)
		}
	}

	type dimScore struct {
		name  string
		score float64
	}
	dims := make([]dimScore, 0, len(sums))
	for dim, sum := range sums {
		dims = append(dims, dimScore{dim, sum / float64(counts[dim])})
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].score < dims[j].score })

	var sb strings.Builder
	sb.WriteString("Weakest dimensions:\n")
	for i, d := range dims {
		if i >= 2 {
			break
		}
		fmt.Fprintf(&sb, "- %s: %.0f/100\n", d.name, d.score)
	}
	for _, f := range feedback {
		fmt.Fprintf(&sb, "Judge feedback: %s\n", f)
	}
	return sb.String()
}
