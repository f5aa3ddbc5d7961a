package evaluator

// EfficiencyScore maps a prompt's token count onto [0, 100]: full
// marks at or below idealTokens, zero at or above maxTokens, linear in
// between. Monotonically non-increasing in tokens.
func EfficiencyScore(tokens, idealTokens, maxTokens int) float64 {
	if idealTokens < 1 {
		idealTokens = 1
	}
	if maxTokens <= idealTokens {
		maxTokens = idealTokens + 1
	}
	switch {
	case tokens <= idealTokens:
		return 100
	case tokens >= maxTokens:
		return 0
	default:
		return 100 * float64(maxTokens-tokens) / float64(maxTokens-idealTokens)
	}
}
