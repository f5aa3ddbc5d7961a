// Package config holds the explicit configuration value passed into
// every engine constructor. There is no ambient global state: callers
// build a Config (from the environment, options, or both) and hand it
// to the components that need it.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/promptforge/promptforge/utils"
)

// Endpoint identifies a remote text-generation service as a
// (provider, model) pair. The engine treats it as opaque routing
// information and never branches on its contents beyond selecting an
// adapter.
type Endpoint struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

func (e Endpoint) String() string {
	return e.Provider + "/" + e.Model
}

// IsZero reports whether the endpoint is unset.
func (e Endpoint) IsZero() bool {
	return e.Provider == "" && e.Model == ""
}

// Config carries every knob the engine needs.
type Config struct {
	Provider string `env:"PF_PROVIDER" envDefault:"openai" validate:"required"`
	Model    string `env:"PF_MODEL" envDefault:"gpt-4o-mini" validate:"required"`

	// Judge endpoint used for scoring. When unset (or LocalEvaluation
	// is on) every evaluation uses the deterministic local fallback.
	JudgeProvider string `env:"PF_JUDGE_PROVIDER"`
	JudgeModel    string `env:"PF_JUDGE_MODEL"`

	Temperature float64 `env:"PF_TEMPERATURE" envDefault:"0.7" validate:"min=0,max=2"`
	MaxTokens   int     `env:"PF_MAX_TOKENS" envDefault:"2000" validate:"min=1"`
	TopP        float64 `env:"PF_TOP_P" envDefault:"1.0"`

	Timeout    time.Duration `env:"PF_TIMEOUT" envDefault:"180s"`
	MaxRetries int           `env:"PF_MAX_RETRIES" envDefault:"3" validate:"min=0"`
	RetryDelay time.Duration `env:"PF_RETRY_DELAY" envDefault:"2s"`

	// DefaultConcurrency caps in-flight calls per endpoint identity
	// unless ConcurrencyLimits carries a more specific entry, keyed by
	// "provider" or "provider/model".
	DefaultConcurrency int `env:"PF_CONCURRENCY" envDefault:"5" validate:"min=1"`
	ConcurrencyLimits  map[string]int

	// RequestsPerSecond rate-limits each endpoint identity group.
	// Zero means unlimited.
	RequestsPerSecond float64 `env:"PF_REQUESTS_PER_SECOND" envDefault:"0"`

	LocalEvaluation bool `env:"PF_LOCAL_EVALUATION" envDefault:"false"`

	// Prompt-size thresholds for the efficiency dimension: full marks
	// at or below IdealPromptTokens, zero at or above MaxPromptTokens.
	IdealPromptTokens int `env:"PF_IDEAL_PROMPT_TOKENS" envDefault:"100" validate:"min=1"`
	MaxPromptTokens   int `env:"PF_MAX_PROMPT_TOKENS" envDefault:"1100" validate:"gtfield=IdealPromptTokens"`

	APIKeys      map[string]string
	BaseURLs     map[string]string
	ExtraHeaders map[string]string

	LogLevel utils.LogLevel `env:"PF_LOG_LEVEL" envDefault:"WARN"`
}

// LoadConfig builds a Config from the environment. API keys are
// harvested from every *_API_KEY variable, keyed by provider.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		APIKeys:      make(map[string]string),
		BaseURLs:     make(map[string]string),
		ExtraHeaders: make(map[string]string),
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	loadAPIKeys(cfg)
	return cfg, nil
}

func loadAPIKeys(cfg *Config) {
	for _, envVar := range os.Environ() {
		key, value, found := strings.Cut(envVar, "=")
		if found && strings.HasSuffix(strings.ToUpper(key), "_API_KEY") {
			provider := strings.TrimSuffix(strings.ToUpper(key), "_API_KEY")
			cfg.APIKeys[strings.ToLower(provider)] = value
		}
	}
}

// NewConfig returns a Config with library defaults, before options.
func NewConfig() *Config {
	return &Config{
		Provider:           "openai",
		Model:              "gpt-4o-mini",
		Temperature:        0.7,
		MaxTokens:          2000,
		TopP:               1.0,
		Timeout:            180 * time.Second,
		MaxRetries:         3,
		RetryDelay:         2 * time.Second,
		DefaultConcurrency: 5,
		ConcurrencyLimits:  make(map[string]int),
		IdealPromptTokens:  100,
		MaxPromptTokens:    1100,
		APIKeys:            make(map[string]string),
		BaseURLs:           make(map[string]string),
		ExtraHeaders:       make(map[string]string),
		LogLevel:           utils.LogLevelWarn,
	}
}

// Endpoint returns the primary generation endpoint identity.
func (c *Config) Endpoint() Endpoint {
	return Endpoint{Provider: c.Provider, Model: c.Model}
}

// JudgeEndpoint returns the judge identity and whether one is usable.
// A judge is usable only when both provider and model are set and
// local-only evaluation is not forced.
func (c *Config) JudgeEndpoint() (Endpoint, bool) {
	if c.LocalEvaluation || c.JudgeProvider == "" || c.JudgeModel == "" {
		return Endpoint{}, false
	}
	return Endpoint{Provider: c.JudgeProvider, Model: c.JudgeModel}, true
}

// ConcurrencyFor resolves the slot-pool size for one endpoint
// identity: the "provider/model" entry wins, then "provider", then the
// global default.
func (c *Config) ConcurrencyFor(e Endpoint) int {
	if n, ok := c.ConcurrencyLimits[e.String()]; ok && n > 0 {
		return n
	}
	if n, ok := c.ConcurrencyLimits[e.Provider]; ok && n > 0 {
		return n
	}
	if c.DefaultConcurrency > 0 {
		return c.DefaultConcurrency
	}
	return 1
}
