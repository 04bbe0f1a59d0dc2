package acr

import (
	"context"
	"sync"

	"github.com/okian/pulse/pkg/logger"
	"github.com/okian/pulse/pkg/metrics"
)

// Registry keeps ACR providers in registration order. Registration may race
// with resolutions; readers always get a snapshot.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
	log       logger.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used to announce registrations.
func WithRegistryLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("acr")
	}
	return r
}

// Register appends a provider. Names are not deduplicated: registering the
// same name twice yields two entries, both tried in order.
func (r *Registry) Register(p Provider) {
	if p == nil {
		return
	}
	r.mu.Lock()
	r.providers = append(r.providers, p)
	n := len(r.providers)
	r.mu.Unlock()

	r.log.Info(context.Background(), "registered acr provider",
		logger.String("provider", p.Name()),
		logger.Int("position", n),
	)
	metrics.UpdateRegisteredProviders(n)
}

// Providers returns a copy of the ordered provider list.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}
