package providers

import (
	"fmt"
	"sync"
)

// ProviderRegistry manages the registration and retrieval of endpoint
// client adapters. It is safe for concurrent use.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	mutex     sync.RWMutex
}

// NewProviderRegistry creates a registry with the specified providers.
// If none are specified, all known providers are registered.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
	}

	known := getKnownProviders()
	if len(providerNames) == 0 {
		for name, constructor := range known {
			registry.providers[name] = constructor
		}
	} else {
		for _, name := range providerNames {
			if constructor, ok := known[name]; ok {
				registry.providers[name] = constructor
			}
		}
	}

	return registry
}

func getKnownProviders() map[string]ProviderConstructor {
	return map[string]ProviderConstructor{
		"openai": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAIProvider(apiKey, model, extraHeaders)
		},
		"anthropic": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewAnthropicProvider(apiKey, model, extraHeaders)
		},
		"groq": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAICompatibleProvider("groq",
				"https://api.groq.com/openai/v1/chat/completions", apiKey, model, extraHeaders)
		},
		"deepseek": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAICompatibleProvider("deepseek",
				"https://api.deepseek.com/v1/chat/completions", apiKey, model, extraHeaders)
		},
		"openrouter": func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewOpenAICompatibleProvider("openrouter",
				"https://openrouter.ai/api/v1/chat/completions", apiKey, model, extraHeaders)
		},
	}
}

// Register adds a custom provider constructor under the given name,
// replacing any existing registration.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[name] = constructor
}

// Get builds a provider instance for the given name.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, ok := r.providers[name]
	r.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return constructor(apiKey, model, extraHeaders), nil
}

// Known returns the names of all registered providers.
func (r *ProviderRegistry) Known() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
