package executor

import (
	"context"
	"sync"

	"github.com/promptforge/promptforge/config"
	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/providers"
	"github.com/promptforge/promptforge/utils"
)

// Client is the narrow generation surface the executor needs from a
// resolved endpoint. llm.LLM satisfies it; tests inject scripted
// implementations.
type Client interface {
	Generate(ctx context.Context, req *providers.Request, options map[string]any) (*providers.Response, error)
}

// Resolver turns an endpoint identity into a Client. Resolution
// failures are configuration errors and abort the whole batch before
// any call launches.
type Resolver interface {
	Resolve(endpoint config.Endpoint) (Client, error)
}

// ClientRegistry is the default Resolver. It builds one llm.LLM per
// endpoint identity and caches it for the life of the registry, so a
// batch spanning many calls to the same endpoint shares a transport.
type ClientRegistry struct {
	cfg       *config.Config
	logger    utils.Logger
	providers *providers.ProviderRegistry

	mutex   sync.Mutex
	clients map[config.Endpoint]Client
}

func NewClientRegistry(cfg *config.Config, logger utils.Logger) *ClientRegistry {
	return &ClientRegistry{
		cfg:       cfg,
		logger:    logger,
		providers: providers.NewProviderRegistry(),
		clients:   make(map[config.Endpoint]Client),
	}
}

// RegisterProvider adds a custom provider constructor, making its name
// routable as an endpoint provider.
func (r *ClientRegistry) RegisterProvider(name string, constructor providers.ProviderConstructor) {
	r.providers.Register(name, constructor)
}

func (r *ClientRegistry) Resolve(endpoint config.Endpoint) (Client, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if client, ok := r.clients[endpoint]; ok {
		return client, nil
	}
	client, err := llm.NewLLM(r.cfg, endpoint, r.logger, r.providers)
	if err != nil {
		return nil, err
	}
	r.clients[endpoint] = client
	return client, nil
}
