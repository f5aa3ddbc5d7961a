package optimizer

import (
	"time"

	"github.com/promptforge/promptforge/evaluator"
)

// TestCase is one input with its expected output. Variables feed
// additional template placeholders beyond the standard input slot.
type TestCase struct {
	ID        string            `json:"id,omitempty"`
	Input     string            `json:"input"`
	Expected  string            `json:"expected"`
	Variables map[string]string `json:"variables,omitempty"`
}

// TestSet is a named collection of test cases. Variables are shared
// placeholder defaults; a case's own variables win on conflict.
type TestSet struct {
	Name      string            `json:"name,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
	Cases     []TestCase        `json:"cases"`
}

// Stage tags a history record: the measurement of the incumbent
// prompt, or the candidate proposals of the same iteration.
type Stage string

const (
	StageBaseline  Stage = "baseline"
	StageCandidate Stage = "candidate"
)

// Candidate is one proposed prompt variant and its measured quality.
// Strategy names the optimization focus that produced it.
type Candidate struct {
	Text        string                  `json:"text"`
	Strategy    string                  `json:"strategy,omitempty"`
	Score       float64                 `json:"score"`
	Evaluations []*evaluator.Evaluation `json:"evaluations,omitempty"`
	Repaired    bool                    `json:"repaired,omitempty"`
	BestOfRound bool                    `json:"best_of_round,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// IterationRecord is one history entry. Every iteration appends a
// baseline record for the incumbent; iterations that run the rewrite
// step append a candidate record after it. Improved is set on a
// candidate record when a proposal displaced the incumbent.
type IterationRecord struct {
	Iteration   int                     `json:"iteration"`
	Stage       Stage                   `json:"stage"`
	Prompt      string                  `json:"prompt"`
	Score       float64                 `json:"score"`
	Evaluations []*evaluator.Evaluation `json:"evaluations,omitempty"`
	Candidates  []Candidate             `json:"candidates,omitempty"`
	Improved    bool                    `json:"improved,omitempty"`
	Duration    time.Duration           `json:"duration"`
}

// Result is the outcome of an optimization run. BestScore never drops
// below InitialScore: an iteration without an improving candidate
// keeps the incumbent prompt byte for byte.
type Result struct {
	InitialPrompt string                  `json:"initial_prompt"`
	InitialScore  float64                 `json:"initial_score"`
	BestPrompt    string                  `json:"best_prompt"`
	BestScore     float64                 `json:"best_score"`
	TargetReached bool                    `json:"target_reached"`
	History       []IterationRecord       `json:"history"`
	Evaluations   []*evaluator.Evaluation `json:"evaluations,omitempty"`
}
