package optimizer

// Strategy labels for the rewrite step. The label selects the guidance
// embedded in the rewrite request and tags the resulting candidates.
const (
	StrategyBalanced     = "balanced"
	StrategyAccuracy     = "accuracy"
	StrategyCompleteness = "completeness"
	StrategyConciseness  = "conciseness"
)

const (
	// DefaultMaxIterations bounds the improvement iterations.
	DefaultMaxIterations = 3

	// DefaultTargetScore stops the search early once the incumbent
	// reaches it.
	DefaultTargetScore = 90.0

	// DefaultCandidatesPerRound is how many variants each rewrite step
	// proposes.
	DefaultCandidatesPerRound = 3

	// DefaultRetryBudget is the total generation attempts per candidate
	// slot, first try included. Only unusable replies are retried.
	DefaultRetryBudget = 3

	// candidateTemperature keeps variant generation exploratory even
	// when the configured generation temperature is low.
	candidateTemperature = 0.9

	// anchorLength is how much context around a placeholder is used to
	// relocate it into a rewritten prompt.
	anchorLength = 30
)
