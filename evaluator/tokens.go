package evaluator

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the cl100k_base encoding, falling
// back to a characters-over-four estimate when the encoding is
// unavailable (offline builds cannot always fetch the BPE ranks).
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func NewTokenCounter() *TokenCounter {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TokenCounter{}
	}
	return &TokenCounter{encoding: encoding}
}

func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// costPer1K maps model name prefixes to input/output USD per thousand
// tokens. Unknown models cost zero rather than guessing.
var costPer1K = map[string][2]float64{
	"gpt-4o-mini":       {0.00015, 0.0006},
	"gpt-4o":            {0.0025, 0.01},
	"gpt-4":             {0.03, 0.06},
	"gpt-3.5":           {0.0005, 0.0015},
	"claude-3-5-haiku":  {0.0008, 0.004},
	"claude-3-haiku":    {0.00025, 0.00125},
	"claude-3-5-sonnet": {0.003, 0.015},
	"claude-3-opus":     {0.015, 0.075},
}

// EstimateCost returns the approximate USD cost of a call. Prefixes
// shadow each other ("gpt-4o" vs "gpt-4o-mini"), so the longest match
// wins.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	best := ""
	for prefix := range costPer1K {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return 0
	}
	rates := costPer1K[best]
	return float64(inputTokens)/1000*rates[0] + float64(outputTokens)/1000*rates[1]
}
