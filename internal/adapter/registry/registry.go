// Package registry implements the router registry and factory (spec
// §4.5): it builds one BackendRouter per unique (base_url, api_key,
// backend_mode) combination found in configuration, keeps a stable
// name→router map, and resolves the special "local" name to either the
// ollama router bound to the configured local daemon or the mock router,
// depending on what the local probe (C9) currently reports.
//
// Grounded on internal/router/registry.go's map-plus-stable-name pattern
// from the teacher, generalised from HTTP routes to backend routers.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/adapter/router/mock"
	"github.com/thushan/ollabridge/internal/adapter/router/ollama"
	"github.com/thushan/ollabridge/internal/adapter/router/openai"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

type dedupKey struct {
	baseURL     string
	apiKey      string
	backendMode domain.BackendMode
}

// Registry implements ports.RouterRegistry.
type Registry struct {
	mu       sync.RWMutex
	pool     ports.ClientPool
	probe    ports.LocalProbe
	logger   *slog.Logger
	caches   cache.Config
	routers  map[string]ports.BackendRouter
	dedup    map[dedupKey]string
	seq      int
	localKey string // name of the router bound to the configured local endpoint, once registered
}

// New builds a Registry. caches is handed to every router constructed from
// here on so each backend owns its own PromptCache/ToolsCache pair
// (spec.md: "BackendRouter ... exclusively owns its caches") instead of
// sharing one proxy-wide pair.
func New(pool ports.ClientPool, probe ports.LocalProbe, logger *slog.Logger, caches cache.Config) *Registry {
	r := &Registry{
		pool:    pool,
		probe:   probe,
		logger:  logger,
		caches:  caches,
		routers: make(map[string]ports.BackendRouter),
		dedup:   make(map[dedupKey]string),
	}
	r.routers[domain.MockRouterName] = mock.New(caches)
	return r
}

// RegisterLocal builds (or reuses) the ollama router bound to the local
// daemon's base URL and remembers its name for LocalRouterName to resolve
// to when the probe reports the daemon up.
func (r *Registry) RegisterLocal(baseURL string, timeoutMs int64) string {
	ep := domain.NewBackendEndpoint(domain.LocalRouterName, domain.LocalGroupName, baseURL, "", "ollama", domain.BackendTypeOllama, timeoutMs, false, nil, nil)
	name := r.RouterNameFor(ep)
	r.mu.Lock()
	r.localKey = name
	r.mu.Unlock()
	return name
}

// RouterNameFor assigns (or looks up) the stable router name for an
// endpoint, constructing the router on first sight and deduplicating
// endpoints that share (base_url, api_key, backend_mode).
func (r *Registry) RouterNameFor(ep *domain.BackendEndpoint) string {
	k := dedupKey{baseURL: ep.BaseURL, apiKey: ep.APIKey, backendMode: ep.BackendMode}

	r.mu.RLock()
	if name, ok := r.dedup[k]; ok {
		r.mu.RUnlock()
		return name
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.dedup[k]; ok {
		return name
	}

	name := fmt.Sprintf("%s-%d", ep.BackendType, r.seq)
	r.seq++

	var router ports.BackendRouter
	switch ep.BackendType {
	case domain.BackendTypeOllama:
		router = ollama.New(r.pool, ep, r.logger, r.caches)
	case domain.BackendTypeMock:
		r.dedup[k] = domain.MockRouterName
		return domain.MockRouterName
	default:
		router = openai.New(r.pool, ep, r.logger, r.caches)
	}

	r.routers[name] = router
	r.dedup[k] = name
	r.logger.Info("registered backend router", "name", name, "backend_type", ep.BackendType, "base_url", ep.BaseURL)
	return name
}

// Get returns the router registered under name.
func (r *Registry) Get(name string) (ports.BackendRouter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	router, ok := r.routers[name]
	return router, ok
}

// LocalRouterName resolves the "local" virtual name to either the ollama
// router bound to the local daemon, or "mock" when C9 reports it down.
func (r *Registry) LocalRouterName(ctx context.Context) string {
	r.mu.RLock()
	localKey := r.localKey
	r.mu.RUnlock()

	if localKey == "" {
		return domain.MockRouterName
	}
	if r.probe != nil && !r.probe.IsUp(ctx) {
		return domain.MockRouterName
	}
	return localKey
}
