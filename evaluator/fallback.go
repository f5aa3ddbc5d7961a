package evaluator

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// localEvaluation scores a response without a judge. The scores are
// deterministic: case-insensitive character-level similarity drives
// accuracy, the length ratio drives completeness (capped at twice the
// expected length, so longer responses never score below a full-length
// one), and the dimensions a text match cannot observe get fixed
// neutral values. The overall score is the mean of these four
// dimensions only.
func (e *Evaluator) localEvaluation(task Task) *Evaluation {
	similarity := textSimilarity(task.Response, task.Expected)
	accuracy := similarity * 100

	completeness := 50.0
	if task.Expected != "" {
		lengthRatio := float64(len(task.Response)) / float64(len(task.Expected))
		if lengthRatio > 2.0 {
			lengthRatio = 2.0
		}
		completeness = lengthRatio * 70
		if completeness > 100 {
			completeness = 100
		}
	}

	scores := map[string]float64{
		"accuracy":     accuracy,
		"completeness": completeness,
		"relevance":    70,
		"clarity":      75,
	}
	var sum float64
	for _, score := range scores {
		sum += score
	}
	return &Evaluation{
		Scores:   scores,
		Overall:  sum / float64(len(scores)),
		Feedback: "Scored locally by text similarity.",
		Fallback: true,
	}
}

// textSimilarity returns the case-insensitive character-level match
// ratio in [0, 1].
func textSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	matcher := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return matcher.Ratio()
}
