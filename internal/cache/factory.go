package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProviderConfig holds the configuration needed to create a cache instance.
type ProviderConfig struct {
	// Size is the maximum number of entries kept by in-memory providers.
	Size int

	// TTL is the time-to-live for cache entries. Zero means no expiry.
	TTL time.Duration

	// Logger receives error reports from backend operations.
	Logger zerolog.Logger

	// KeyPrefix namespaces keys in shared backends. Defaults to "anibridge:".
	KeyPrefix string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Group labels the cache_* Prometheus metrics. When non-empty the cache
	// is wrapped with metric instrumentation.
	Group string
}

// Provider is a constructor function that creates a Cache from config.
type Provider func(cfg ProviderConfig) (Cache, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]Provider)
)

// Register registers a cache provider under the given name.
// It panics if the name is already registered or the provider is nil.
func Register(name string, p Provider) {
	mu.Lock()
	defer mu.Unlock()

	if p == nil {
		panic("cache: Register provider is nil")
	}
	if _, exists := providers[name]; exists {
		panic(fmt.Sprintf("cache: provider %q already registered", name))
	}
	providers[name] = p
}

// New creates a new Cache using the named provider and the given config.
func New(name string, cfg ProviderConfig) (Cache, error) {
	mu.RLock()
	p, ok := providers[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q (registered: %v)", name, RegisteredProviders())
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "anibridge:"
	}

	inner, err := p(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Group == "" {
		return inner, nil
	}
	return newInstrumentedCache(inner, cfg.Group), nil
}

// RegisteredProviders returns a sorted list of registered provider names.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
