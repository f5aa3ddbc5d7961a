package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/executor"
	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/providers"
	"github.com/promptforge/promptforge/utils"
)

type fakeClient struct {
	generate func(ctx context.Context, req *providers.Request) (*providers.Response, error)
}

func (f *fakeClient) Generate(ctx context.Context, req *providers.Request, options map[string]any) (*providers.Response, error) {
	return f.generate(ctx, req)
}

type fakeResolver struct {
	clients map[config.Endpoint]executor.Client
}

func (f *fakeResolver) Resolve(endpoint config.Endpoint) (executor.Client, error) {
	client, ok := f.clients[endpoint]
	if !ok {
		return nil, fmt.Errorf("no client for %s", endpoint)
	}
	return client, nil
}

func judgeConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.JudgeProvider = "openai"
	cfg.JudgeModel = "judge-model"
	return cfg
}

func newJudgeEvaluator(t *testing.T, cfg *config.Config, reply string) *Evaluator {
	t.Helper()
	judge, ok := cfg.JudgeEndpoint()
	require.True(t, ok)

	client := &fakeClient{generate: func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
		return &providers.Response{Text: reply}, nil
	}}
	exec := executor.NewWithResolver(cfg, utils.NewLogger(utils.LogLevelOff), &fakeResolver{
		clients: map[config.Endpoint]executor.Client{judge: client},
	})
	return New(cfg, exec, utils.NewLogger(utils.LogLevelOff))
}

func localEvaluator(cfg *config.Config) *Evaluator {
	exec := executor.NewWithResolver(cfg, utils.NewLogger(utils.LogLevelOff), &fakeResolver{})
	return New(cfg, exec, utils.NewLogger(utils.LogLevelOff))
}

func TestLocalEvaluationScores(t *testing.T) {
	cfg := config.NewConfig()
	cfg.LocalEvaluation = true
	e := localEvaluator(cfg)

	t.Run("identical response", func(t *testing.T) {
		eval := e.Score(context.Background(), Task{Expected: "the answer", Response: "the answer"})
		require.True(t, eval.Fallback)
		assert.InDelta(t, 100, eval.Scores["accuracy"], 0.01)
		assert.InDelta(t, 70, eval.Scores["completeness"], 0.01)
		assert.Equal(t, 70.0, eval.Scores["relevance"])
		assert.Equal(t, 75.0, eval.Scores["clarity"])
		assert.InDelta(t, 78.75, eval.Overall, 0.01)
	})

	t.Run("case differences do not hurt accuracy", func(t *testing.T) {
		eval := e.Score(context.Background(), Task{Expected: "The Answer", Response: "the answer"})
		assert.InDelta(t, 100, eval.Scores["accuracy"], 0.01)
	})

	t.Run("unrelated response scores lower", func(t *testing.T) {
		good := e.Score(context.Background(), Task{Expected: "the answer", Response: "the answer"})
		bad := e.Score(context.Background(), Task{Expected: "the answer", Response: "zzzz"})
		assert.Less(t, bad.Scores["accuracy"], good.Scores["accuracy"])
	})

	t.Run("length ratio caps at twice the expected", func(t *testing.T) {
		long := ""
		for i := 0; i < 30; i++ {
			long += "padding "
		}
		eval := e.Score(context.Background(), Task{Expected: "short", Response: long})
		assert.Equal(t, 100.0, eval.Scores["completeness"])

		// A response a bit past 2x scores the same as one exactly at it.
		capped := e.Score(context.Background(), Task{Expected: "abcde", Response: "abcdeabcdef"})
		atCap := e.Score(context.Background(), Task{Expected: "abcde", Response: "abcdeabcde"})
		assert.Equal(t, atCap.Scores["completeness"], capped.Scores["completeness"])
	})

	t.Run("overall is the mean of the four dimensions", func(t *testing.T) {
		eval := e.Score(context.Background(), Task{Prompt: "Summarize: {{input}}", Expected: "abc", Response: "abc"})
		assert.NotContains(t, eval.Scores, EfficiencyDimension)
		want := (eval.Scores["accuracy"] + eval.Scores["completeness"] + eval.Scores["relevance"] + eval.Scores["clarity"]) / 4
		assert.InDelta(t, want, eval.Overall, 0.01)
	})

	t.Run("scores stay in bounds", func(t *testing.T) {
		eval := e.Score(context.Background(), Task{Expected: "abc", Response: "abcabc"})
		for dim, score := range eval.Scores {
			assert.GreaterOrEqual(t, score, 0.0, dim)
			assert.LessOrEqual(t, score, 100.0, dim)
		}
	})
}

func TestJudgeEvaluation(t *testing.T) {
	cfg := judgeConfig()
	cfg.IdealPromptTokens = 100
	cfg.MaxPromptTokens = 1100

	t.Run("valid reply", func(t *testing.T) {
		reply := `{"scores": {"accuracy": 90, "completeness": 80, "relevance": 70, "clarity": 60}, "feedback": "solid"}`
		e := newJudgeEvaluator(t, cfg, reply)

		eval := e.Score(context.Background(), Task{Prompt: "short prompt", Expected: "x", Response: "y"})
		require.False(t, eval.Fallback)
		assert.Empty(t, eval.Error)
		assert.Equal(t, "solid", eval.Feedback)
		assert.Equal(t, 90.0, eval.Scores["accuracy"])

		// Efficiency is computed locally and folded into the mean.
		assert.Equal(t, 100.0, eval.Scores[EfficiencyDimension])
		assert.InDelta(t, 80.0, eval.Overall, 0.01)
	})

	t.Run("reply wrapped in fences with trailing comma", func(t *testing.T) {
		reply := "```json\n{\"scores\": {\"accuracy\": 85, \"completeness\": 85, \"relevance\": 85, \"clarity\": 85,}\n```"
		e := newJudgeEvaluator(t, cfg, reply)

		eval := e.Score(context.Background(), Task{Expected: "x", Response: "y"})
		require.False(t, eval.Fallback)
		assert.Equal(t, 85.0, eval.Scores["accuracy"])
	})

	t.Run("out of range scores clamp", func(t *testing.T) {
		reply := `{"scores": {"accuracy": 150, "completeness": -20, "relevance": 70, "clarity": 70}}`
		e := newJudgeEvaluator(t, cfg, reply)

		eval := e.Score(context.Background(), Task{Expected: "x", Response: "y"})
		require.False(t, eval.Fallback)
		assert.Equal(t, 100.0, eval.Scores["accuracy"])
		assert.Equal(t, 0.0, eval.Scores["completeness"])
	})

	t.Run("reply without scores falls back", func(t *testing.T) {
		reply := `{"feedback": "looks fine to me"}`
		e := newJudgeEvaluator(t, cfg, reply)

		eval := e.Score(context.Background(), Task{Expected: "x", Response: "x"})
		require.True(t, eval.Fallback)
		assert.Contains(t, eval.Error, "invalid judge reply")
	})

	t.Run("missing dimension falls back", func(t *testing.T) {
		reply := `{"scores": {"accuracy": 90}}`
		e := newJudgeEvaluator(t, cfg, reply)

		eval := e.Score(context.Background(), Task{Expected: "x", Response: "x"})
		require.True(t, eval.Fallback)
		assert.Contains(t, eval.Error, "missing dimension")
	})

	t.Run("garbage reply falls back", func(t *testing.T) {
		e := newJudgeEvaluator(t, cfg, "garbage text")

		eval := e.Score(context.Background(), Task{Expected: "x", Response: "x"})
		require.True(t, eval.Fallback)
		assert.Contains(t, eval.Error, "unparseable")
		assert.InDelta(t, 100, eval.Scores["accuracy"], 0.01)
	})

	t.Run("judge call failure falls back", func(t *testing.T) {
		judge, _ := cfg.JudgeEndpoint()
		client := &fakeClient{generate: func(ctx context.Context, req *providers.Request) (*providers.Response, error) {
			return nil, llm.NewLLMError(llm.ErrorTypeAPI, "judge down", nil)
		}}
		exec := executor.NewWithResolver(cfg, utils.NewLogger(utils.LogLevelOff), &fakeResolver{
			clients: map[config.Endpoint]executor.Client{judge: client},
		})
		e := New(cfg, exec, utils.NewLogger(utils.LogLevelOff))

		eval := e.Score(context.Background(), Task{Expected: "x", Response: "x"})
		require.True(t, eval.Fallback)
		assert.Contains(t, eval.Error, "judge down")
	})

	t.Run("unresolvable judge endpoint falls back", func(t *testing.T) {
		exec := executor.NewWithResolver(cfg, utils.NewLogger(utils.LogLevelOff), &fakeResolver{})
		e := New(cfg, exec, utils.NewLogger(utils.LogLevelOff))

		evals := e.ScoreBatch(context.Background(), []Task{{Expected: "x", Response: "x"}}, nil)
		require.Len(t, evals, 1)
		assert.True(t, evals[0].Fallback)
		assert.NotEmpty(t, evals[0].Error)
	})
}

func TestScoreBatchOrderAndProgress(t *testing.T) {
	cfg := config.NewConfig()
	cfg.LocalEvaluation = true
	e := localEvaluator(cfg)

	tasks := []Task{
		{Expected: "alpha", Response: "alpha"},
		{Expected: "beta", Response: "nothing alike"},
		{Expected: "gamma", Response: "gamma"},
	}
	var seen []int
	evals := e.ScoreBatch(context.Background(), tasks, func(completed, total int) {
		assert.Equal(t, 3, total)
		seen = append(seen, completed)
	})

	require.Len(t, evals, 3)
	assert.Greater(t, evals[0].Scores["accuracy"], evals[1].Scores["accuracy"])
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestCriteriaJSONRoundTrip(t *testing.T) {
	criteria := DefaultCriteria()
	data, err := json.Marshal(criteria)
	require.NoError(t, err)

	var decoded Criteria
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, criteria, decoded)
	assert.Equal(t, []string{"accuracy", "completeness", "relevance", "clarity"}, decoded.Names())
}

func TestEfficiencyScore(t *testing.T) {
	t.Run("full marks at or below ideal", func(t *testing.T) {
		assert.Equal(t, 100.0, EfficiencyScore(0, 100, 1100))
		assert.Equal(t, 100.0, EfficiencyScore(100, 100, 1100))
	})

	t.Run("zero at or above max", func(t *testing.T) {
		assert.Equal(t, 0.0, EfficiencyScore(1100, 100, 1100))
		assert.Equal(t, 0.0, EfficiencyScore(5000, 100, 1100))
	})

	t.Run("linear in between", func(t *testing.T) {
		assert.InDelta(t, 50.0, EfficiencyScore(600, 100, 1100), 0.01)
		assert.InDelta(t, 90.0, EfficiencyScore(200, 100, 1100), 0.01)
	})

	t.Run("monotonically non-increasing", func(t *testing.T) {
		prev := 101.0
		for tokens := 0; tokens <= 1200; tokens += 50 {
			score := EfficiencyScore(tokens, 100, 1100)
			assert.LessOrEqual(t, score, prev, "tokens=%d", tokens)
			prev = score
		}
	})
}

func TestEstimateCost(t *testing.T) {
	assert.Greater(t, EstimateCost("gpt-4o-mini", 1000, 1000), 0.0)
	assert.Equal(t, 0.0, EstimateCost("totally-unknown-model", 1000, 1000))

	// Longest prefix wins: gpt-4o-mini must not get gpt-4o pricing.
	mini := EstimateCost("gpt-4o-mini", 1000, 1000)
	full := EstimateCost("gpt-4o", 1000, 1000)
	assert.Less(t, mini, full)
}
