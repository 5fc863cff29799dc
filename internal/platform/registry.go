package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"callsync/internal/cache"

	"github.com/rs/zerolog"
)

// adapterTTL bounds how long an authenticated adapter instance is reused
// before it is rebuilt and re-authenticated
const adapterTTL = time.Hour

// Factory constructs an unauthenticated adapter for one platform
type Factory func() (Adapter, error)

// Registry resolves a platform identifier to a cached, authenticated adapter
// instance. It is constructed once per process and passed by reference;
// there is no package-level singleton.
type Registry struct {
	factories map[string]Factory
	adapters  *cache.Cache
	logger    zerolog.Logger
	mu        sync.Mutex
}

// NewRegistry creates an empty registry
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		adapters:  cache.New(),
		logger:    logger,
	}
}

// RegisterFactory registers the constructor for a platform. Registering the
// same platform again replaces the factory and drops any cached instance.
func (r *Registry) RegisterFactory(platform string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[platform] = factory
	r.adapters.Delete(platform)
}

// Platforms returns the registered platform identifiers
func (r *Registry) Platforms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	platforms := make([]string, 0, len(r.factories))
	for name := range r.factories {
		platforms = append(platforms, name)
	}
	return platforms
}

// Get returns an authenticated adapter for the platform, building and
// caching one on first use. Construction and authentication are serialized
// so concurrent syncs share a single instance.
func (r *Registry) Get(ctx context.Context, platform string) (Adapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.adapters.Get(platform); ok {
		return cached.(Adapter), nil
	}

	factory, ok := r.factories[platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	adapter, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s adapter: %w", platform, err)
	}

	if err := adapter.Authenticate(ctx); err != nil {
		return nil, err
	}

	r.logger.Info().Str("platform", platform).Msg("Adapter authenticated")
	r.adapters.Set(platform, adapter, adapterTTL)

	return adapter, nil
}

// Invalidate drops the cached instance for a platform, forcing the next Get
// to rebuild and re-authenticate
func (r *Registry) Invalidate(platform string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters.Delete(platform)
}
