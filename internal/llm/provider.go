package llm

import (
	"context"
	"fmt"
	"sync"
)

// Provider defines the interface for text-generation backends
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// IsModelAvailable reports whether the backend has the model installed
	IsModelAvailable(ctx context.Context, model string) bool

	// Chat sends a single-turn prompt and returns a tagged result
	Chat(ctx context.Context, model, prompt string, maxTokens int) (*Result, error)
}

// Registry manages generation providers and routing
type Registry struct {
	providers       map[string]Provider
	defaultProvider string
	mu              sync.RWMutex
}

// NewRegistry creates a new provider registry
func NewRegistry(defaultProvider string) *Registry {
	return &Registry{
		providers:       make(map[string]Provider),
		defaultProvider: defaultProvider,
	}
}

// Register registers a provider
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.Name()] = provider
}

// Get returns a provider by name, or the default when name is empty
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	if !p.IsConfigured() {
		return nil, fmt.Errorf("provider not configured: %s", name)
	}
	return p, nil
}

// DefaultProvider returns the default provider name
func (r *Registry) DefaultProvider() string {
	return r.defaultProvider
}

// ProviderInfo contains information about a registered provider
type ProviderInfo struct {
	Name       string `json:"name"`
	Default    bool   `json:"default"`
	Configured bool   `json:"configured"`
}

// Info returns information about all registered providers
func (r *Registry) Info() []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []ProviderInfo
	for name, p := range r.providers {
		infos = append(infos, ProviderInfo{
			Name:       name,
			Default:    name == r.defaultProvider,
			Configured: p.IsConfigured(),
		})
	}
	return infos
}
