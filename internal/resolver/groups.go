// Package resolver implements the config/resolver view (spec §4.6): given a
// user-facing model string, it answers with a domain.ResolvedModel and its
// ordered domain.Candidate failover list, consulting a precomputed reverse
// index and caching results per input string until config reload
// invalidates the cache.
package resolver

import (
	"github.com/thushan/ollabridge/internal/config"
	"github.com/thushan/ollabridge/internal/core/domain"
)

// BuildGroups converts the loaded configuration into the in-memory
// domain.ModelGroup set the resolver walks, preserving each group's backend
// declaration order (the failover order, spec §3).
func BuildGroups(cfg *config.Config) map[string]*domain.ModelGroup {
	groups := make(map[string]*domain.ModelGroup, len(cfg.Models))
	for name, gc := range cfg.Models {
		group := &domain.ModelGroup{
			Name:            name,
			Description:     gc.Description,
			AvailableModels: make(map[string]domain.ModelDetails, len(gc.AvailableModels)),
		}
		for virtual, m := range gc.AvailableModels {
			group.AvailableModels[virtual] = domain.ModelDetails{
				Capabilities:    m.Capabilities,
				ActualModel:     m.ActualModel,
				ContextLength:   m.ContextLength,
				EmbeddingLength: m.EmbeddingLength,
			}
		}
		for _, b := range gc.Backends {
			compression := cfg.Proxy.ToolCompressionOn
			if b.CompressionEnabled != nil {
				compression = *b.CompressionEnabled
			}
			timeout := b.Timeout
			if timeout == 0 {
				timeout = cfg.Proxy.DefaultTimeout
			}
			ep := domain.NewBackendEndpoint(
				b.Key,
				name,
				b.BaseURL,
				b.APIKey,
				domain.BackendMode(b.Key),
				domain.BackendType(b.BackendType),
				timeout.Milliseconds(),
				compression,
				b.Headers,
				b.ModelMapping,
			)
			group.Endpoints = append(group.Endpoints, ep)
		}
		groups[name] = group
	}
	return groups
}
