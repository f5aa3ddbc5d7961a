package optimizer

import "math"

// Report aggregates a finished run for display or logging.
type Report struct {
	InitialScore  float64 `json:"initial_score"`
	BestScore     float64 `json:"best_score"`
	Improvement   float64 `json:"improvement"`
	TargetReached bool    `json:"target_reached"`

	// Rounds counts the iterations that ran the rewrite step;
	// ImprovedRounds those whose best candidate displaced the incumbent.
	Rounds         int                `json:"rounds"`
	ImprovedRounds int                `json:"improved_rounds"`
	Dimensions     map[string]float64 `json:"dimensions"`

	// Stability is the standard deviation of the overall score across
	// test cases for the best prompt. Low is good: the prompt performs
	// evenly rather than excelling on some cases and failing others.
	Stability float64 `json:"stability"`

	// FallbackScored reports how many of the best prompt's evaluations
	// came from the local scorer rather than a judge.
	FallbackScored int `json:"fallback_scored"`
}

// Summarize builds a report from a run result.
func Summarize(result *Result) *Report {
	report := &Report{
		InitialScore:  result.InitialScore,
		BestScore:     result.BestScore,
		Improvement:   result.BestScore - result.InitialScore,
		TargetReached: result.TargetReached,
		Dimensions:    make(map[string]float64),
	}
	for _, record := range result.History {
		if record.Stage != StageCandidate {
			continue
		}
		report.Rounds++
		if record.Improved {
			report.ImprovedRounds++
		}
	}

	if len(result.Evaluations) == 0 {
		return report
	}

	counts := make(map[string]int)
	var overalls []float64
	for _, eval := range result.Evaluations {
		for dim, score := range eval.Scores {
			report.Dimensions[dim] += score
			counts[dim]++
		}
		overalls = append(overalls, eval.Overall)
		if eval.Fallback {
			report.FallbackScored++
		}
	}
	for dim := range report.Dimensions {
		report.Dimensions[dim] /= float64(counts[dim])
	}
	report.Stability = stddev(overalls)
	return report
}

func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
