package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/promptforge/promptforge/evaluator"
	"github.com/promptforge/promptforge/executor"
	"github.com/promptforge/promptforge/jsonrepair"
	"github.com/promptforge/promptforge/llm"
)

// rewriteReply is the JSON shape the rewrite request asks for.
type rewriteReply struct {
	OptimizedPrompt string `json:"optimized_prompt" validate:"required"`
}

var errEmptyRewrite = errors.New("optimized_prompt is empty")

// generateCandidates proposes rewritten variants of the incumbent.
// Each slot gets retryBudget total attempts, but only an unusable
// reply (nothing parseable, or a missing or empty optimized_prompt
// field) is retried, after the configured retry delay. Transport and
// provider failures abort the slot immediately. A slot that produces
// nothing stays empty with its last error recorded, and the round
// simply proceeds with fewer candidates.
func (o *Optimizer) generateCandidates(ctx context.Context, incumbent *llm.PromptTemplate, evals []*evaluator.Evaluation) []Candidate {
	candidates := make([]Candidate, o.candidatesPerRound)
	for i := range candidates {
		candidates[i].Strategy = o.strategy
	}
	rewrite := o.rewritePrompt(incumbent, feedbackSummary(evals))
	temperature := candidateTemperature

	pending := make([]int, o.candidatesPerRound)
	for i := range pending {
		pending[i] = i
	}

	for attempt := 0; attempt < o.retryBudget && len(pending) > 0; attempt++ {
		if attempt > 0 && !o.backoff(ctx) {
			break
		}

		requests := make([]executor.CallRequest, len(pending))
		for j, idx := range pending {
			requests[j] = executor.CallRequest{
				ID:       fmt.Sprintf("candidate-%d-attempt-%d", idx, attempt),
				Prompt:   rewrite,
				Sampling: &executor.SamplingParams{Temperature: &temperature},
			}
		}

		results, err := o.exec.Dispatch(ctx, requests, nil)
		if err != nil {
			for _, idx := range pending {
				candidates[idx].Error = err.Error()
			}
			return candidates
		}

		var retry []int
		for j, result := range results {
			idx := pending[j]
			if result.Err != nil {
				candidates[idx].Error = result.Err.Error()
				continue
			}
			text, err := parseRewrite(result.Text)
			if err != nil {
				candidates[idx].Error = err.Error()
				retry = append(retry, idx)
				continue
			}
			repaired, changed := preserveVariables(incumbent.Template, text, incumbent.Placeholders())
			candidates[idx].Text = repaired
			candidates[idx].Repaired = changed
			candidates[idx].Error = ""
		}
		pending = retry
	}

	for _, idx := range pending {
		o.logger.Warn("candidate slot exhausted its attempts", "slot", idx, "error", candidates[idx].Error)
	}
	return candidates
}

// parseRewrite extracts the rewritten prompt from a rewrite reply.
func parseRewrite(text string) (string, error) {
	var reply rewriteReply
	if err := jsonrepair.Parse(text, &reply); err != nil {
		return "", fmt.Errorf("unusable rewrite reply: %w", err)
	}
	if err := llm.Validate(&reply); err != nil {
		return "", errEmptyRewrite
	}
	prompt := strings.TrimSpace(reply.OptimizedPrompt)
	if prompt == "" {
		return "", errEmptyRewrite
	}
	return prompt, nil
}

// rewritePrompt builds the meta-prompt that asks the generation
// endpoint for an improved variant under the configured strategy.
func (o *Optimizer) rewritePrompt(incumbent *llm.PromptTemplate, feedback string) string {
	var sb strings.Builder
	sb.WriteString("You are a prompt engineer. Rewrite the following prompt so a language model produces better responses with it.\n\n")
	sb.WriteString("Current prompt:\n")
	sb.WriteString(incumbent.Template)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Optimization focus (%s): %s\n\n", o.strategy, strategyGuidance(o.strategy))

	if feedback != "" {
		sb.WriteString("Measured weaknesses of the current prompt:\n")
		sb.WriteString(feedback)
		sb.WriteString("\n")
	}

	if placeholders := incumbent.Placeholders(); len(placeholders) > 0 {
		sb.WriteString("The rewritten prompt must keep these template variables exactly as written: ")
		for i, name := range placeholders {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("{{" + name + "}}")
		}
		sb.WriteString(".\n")
	}

	sb.WriteString("Reply with JSON only, shaped as {\"optimized_prompt\": \"...\"}.")
	return sb.String()
}

// strategyGuidance maps a strategy label to the instruction embedded
// in the rewrite request.
func strategyGuidance(strategy string) string {
	switch strategy {
	case StrategyAccuracy:
		return "Make responses factually correct and faithful to the expected outputs, even at the cost of extra length."
	case StrategyCompleteness:
		return "Make responses cover every part of the expected output, leaving nothing out."
	case StrategyConciseness:
		return "Make the prompt itself shorter and make responses direct, without losing correctness."
	default:
		return "Improve response quality evenly across all scoring dimensions."
	}
}
