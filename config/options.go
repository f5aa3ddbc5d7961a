package config

import (
	"time"

	"github.com/promptforge/promptforge/utils"
)

type ConfigOption func(*Config)

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// SetJudge configures the endpoint used to score responses.
func SetJudge(provider, model string) ConfigOption {
	return func(c *Config) {
		c.JudgeProvider = provider
		c.JudgeModel = model
	}
}

func SetTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

func SetMaxTokens(maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		c.MaxTokens = maxTokens
	}
}

func SetTopP(topP float64) ConfigOption {
	return func(c *Config) {
		c.TopP = topP
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

func SetRetryDelay(retryDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = retryDelay
	}
}

// SetAPIKey stores an API key for the currently configured provider.
func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[c.Provider] = apiKey
	}
}

// SetProviderAPIKey stores an API key for a specific provider.
func SetProviderAPIKey(provider, apiKey string) ConfigOption {
	return func(c *Config) {
		if c.APIKeys == nil {
			c.APIKeys = make(map[string]string)
		}
		c.APIKeys[provider] = apiKey
	}
}

// SetBaseURL overrides the API base URL for a provider, e.g. for
// proxies or self-hosted OpenAI-compatible servers.
func SetBaseURL(provider, url string) ConfigOption {
	return func(c *Config) {
		if c.BaseURLs == nil {
			c.BaseURLs = make(map[string]string)
		}
		c.BaseURLs[provider] = url
	}
}

func SetDefaultConcurrency(n int) ConfigOption {
	return func(c *Config) {
		if n < 1 {
			n = 1
		}
		c.DefaultConcurrency = n
	}
}

// SetConcurrencyLimit caps in-flight calls for one identity group.
// The key is either "provider" or "provider/model".
func SetConcurrencyLimit(key string, n int) ConfigOption {
	return func(c *Config) {
		if c.ConcurrencyLimits == nil {
			c.ConcurrencyLimits = make(map[string]int)
		}
		c.ConcurrencyLimits[key] = n
	}
}

func SetRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// SetLocalEvaluation forces every evaluation through the deterministic
// local fallback, even when a judge endpoint is configured.
func SetLocalEvaluation(local bool) ConfigOption {
	return func(c *Config) {
		c.LocalEvaluation = local
	}
}

// SetEfficiencyBounds sets the prompt-size thresholds used by the
// efficiency dimension.
func SetEfficiencyBounds(idealTokens, maxTokens int) ConfigOption {
	return func(c *Config) {
		c.IdealPromptTokens = idealTokens
		c.MaxPromptTokens = maxTokens
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}
