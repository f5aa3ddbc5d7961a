package optimizer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/promptforge/promptforge/executor"
	"github.com/promptforge/promptforge/jsonrepair"
	"github.com/promptforge/promptforge/llm"
)

// DefaultDirections steer generated test cases toward distinct kinds
// of inputs so the measurement covers more than the happy path.
var DefaultDirections = []string{
	"a typical, well-formed input",
	"a minimal or sparse input",
	"an ambiguous input that requires interpretation",
	"an input with irrelevant extra detail to ignore",
}

const defaultCaseCount = 4

// AutoOptimizer runs the iterative search without a caller-provided
// test set: at the start of every iteration it asks the generation
// endpoint for fresh input directions and test cases for the task, so
// successive iterations measure against varied inputs. Generation
// failures degrade to a small deterministic test set so a run always
// proceeds.
type AutoOptimizer struct {
	*Optimizer
	caseCount       int
	directions      []string
	fixedDirections bool
}

type AutoOption func(*AutoOptimizer)

func WithCaseCount(n int) AutoOption {
	return func(a *AutoOptimizer) {
		if n > 0 {
			a.caseCount = n
		}
	}
}

// WithDirections pins the input directions, skipping direction
// generation.
func WithDirections(directions []string) AutoOption {
	return func(a *AutoOptimizer) {
		if len(directions) > 0 {
			a.directions = directions
			a.fixedDirections = true
		}
	}
}

func NewAuto(opt *Optimizer, opts ...AutoOption) *AutoOptimizer {
	a := &AutoOptimizer{
		Optimizer:  opt,
		caseCount:  defaultCaseCount,
		directions: DefaultDirections,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run optimizes the prompt for the described task, regenerating
// directions and test cases at the start of each iteration.
func (a *AutoOptimizer) Run(ctx context.Context, prompt *llm.PromptTemplate, taskDescription string) (*Result, error) {
	a.refresh = func(ctx context.Context, iteration int) (TestSet, error) {
		if !a.fixedDirections {
			directions, err := a.GenerateDirections(ctx, taskDescription)
			if err != nil {
				return TestSet{}, err
			}
			a.directions = directions
		}
		return a.GenerateTestSet(ctx, prompt, taskDescription)
	}
	defer func() { a.refresh = nil }()
	return a.Optimizer.Run(ctx, prompt, TestSet{})
}

var directionLinePattern = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]\s*|[-*]\s*)?(\S.*)$`)

// GenerateDirections asks the generation endpoint what kinds of inputs
// the test cases should cover. The reply is parsed as a numbered list,
// falling back to plain line splitting. Unusable replies are retried
// up to the retry budget; when they all miss, or the call itself
// fails, the default directions stand in.
func (a *AutoOptimizer) GenerateDirections(ctx context.Context, taskDescription string) ([]string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n\n", taskDescription)
	fmt.Fprintf(&sb, "List %d distinct kinds of inputs a prompt for this task should be tested against. ", a.caseCount)
	sb.WriteString("Reply with a numbered list, one kind per line, no commentary.")

	for attempt := 0; attempt < a.retryBudget; attempt++ {
		if attempt > 0 && !a.backoff(ctx) {
			break
		}
		result, err := a.exec.Execute(ctx, executor.CallRequest{
			ID:     fmt.Sprintf("generate-directions-%d", attempt),
			Prompt: sb.String(),
		})
		if err != nil {
			return nil, err
		}
		if result.Err != nil {
			a.logger.Warn("direction generation failed, using defaults", "error", result.Err)
			return DefaultDirections, nil
		}

		var directions []string
		for _, m := range directionLinePattern.FindAllStringSubmatch(result.Text, -1) {
			line := strings.TrimSpace(m[1])
			if line == "" {
				continue
			}
			directions = append(directions, line)
			if len(directions) >= a.caseCount {
				break
			}
		}
		if len(directions) > 0 {
			return directions, nil
		}
		a.logger.Warn("direction reply unusable", "attempt", attempt+1)
	}
	return DefaultDirections, nil
}

// GenerateTestSet asks the generation endpoint for test cases covering
// the configured directions. An unresolvable endpoint is an error; an
// unusable reply is retried up to the retry budget before the
// deterministic default set derived from the task description stands
// in.
func (a *AutoOptimizer) GenerateTestSet(ctx context.Context, prompt *llm.PromptTemplate, taskDescription string) (TestSet, error) {
	for attempt := 0; attempt < a.retryBudget; attempt++ {
		if attempt > 0 && !a.backoff(ctx) {
			break
		}
		result, err := a.exec.Execute(ctx, executor.CallRequest{
			ID:     fmt.Sprintf("generate-cases-%d", attempt),
			Prompt: a.casePrompt(prompt, taskDescription),
		})
		if err != nil {
			return TestSet{}, err
		}
		if result.Err != nil {
			a.logger.Warn("test case generation failed, using default cases", "error", result.Err)
			return a.defaultTestSet(taskDescription), nil
		}

		var reply struct {
			Cases []struct {
				Input    string `json:"input"`
				Expected string `json:"expected"`
			} `json:"cases"`
		}
		if err := jsonrepair.Parse(result.Text, &reply); err != nil || len(reply.Cases) == 0 {
			a.logger.Warn("test case reply unusable", "attempt", attempt+1, "error", err)
			continue
		}

		tests := TestSet{Name: "generated"}
		for _, c := range reply.Cases {
			if strings.TrimSpace(c.Input) == "" || strings.TrimSpace(c.Expected) == "" {
				continue
			}
			tests.Cases = append(tests.Cases, TestCase{
				ID:       uuid.NewString(),
				Input:    c.Input,
				Expected: c.Expected,
			})
			if len(tests.Cases) >= a.caseCount {
				break
			}
		}
		if len(tests.Cases) > 0 {
			return tests, nil
		}
	}
	return a.defaultTestSet(taskDescription), nil
}

func (a *AutoOptimizer) casePrompt(prompt *llm.PromptTemplate, taskDescription string) string {
	var sb strings.Builder
	sb.WriteString("You are building a test suite for a prompt.\n\n")
	fmt.Fprintf(&sb, "Task: %s\n\nPrompt under test:\n%s\n\n", taskDescription, prompt.Template)
	fmt.Fprintf(&sb, "Produce %d test cases. Cover these kinds of inputs:\n", a.caseCount)
	for _, d := range a.directions {
		fmt.Fprintf(&sb, "- %s\n", d)
	}
	sb.WriteString("\nReply with JSON only, shaped as {\"cases\": [{\"input\": \"...\", \"expected\": \"...\"}]}. The expected field is the ideal response for that input.")
	return sb.String()
}

// defaultTestSet is the fallback when the endpoint cannot supply
// cases: one case per direction, expecting a faithful response to the
// task.
func (a *AutoOptimizer) defaultTestSet(taskDescription string) TestSet {
	tests := TestSet{Name: "default"}
	for _, direction := range a.directions {
		if len(tests.Cases) >= a.caseCount {
			break
		}
		tests.Cases = append(tests.Cases, TestCase{
			ID:       uuid.NewString(),
			Input:    fmt.Sprintf("%s (%s)", taskDescription, direction),
			Expected: fmt.Sprintf("A correct and complete response for the task: %s", taskDescription),
		})
	}
	return tests
}
