package resolver

import (
	"fmt"
	"strings"
	"sync"

	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

// reverseEntry is one hit in the inner-name reverse index: a model named
// "inner" is reachable both by "inner" alone and by "group/inner".
type reverseEntry struct {
	group   *domain.ModelGroup
	virtual string
}

// Resolver implements ports.Resolver.
type Resolver struct {
	registry ports.RouterRegistry

	mu      sync.RWMutex
	groups  map[string]*domain.ModelGroup
	reverse map[string][]reverseEntry
	cache   map[string]*domain.ResolvedModel
}

func New(groups map[string]*domain.ModelGroup, registry ports.RouterRegistry) *Resolver {
	r := &Resolver{registry: registry}
	r.reload(groups)
	return r
}

// Reload swaps in a new group set (config was reloaded) and invalidates the
// resolution cache, per spec §4.6's purity invariant.
func (r *Resolver) Reload(groups map[string]*domain.ModelGroup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reload(groups)
}

func (r *Resolver) reload(groups map[string]*domain.ModelGroup) {
	reverse := make(map[string][]reverseEntry)
	for _, group := range groups {
		for virtual := range group.AvailableModels {
			reverse[virtual] = append(reverse[virtual], reverseEntry{group: group, virtual: virtual})
			reverse[group.Name+"/"+virtual] = append(reverse[group.Name+"/"+virtual], reverseEntry{group: group, virtual: virtual})
		}
	}
	r.groups = groups
	r.reverse = reverse
	r.cache = make(map[string]*domain.ResolvedModel)
}

// Groups returns the currently loaded group set, for callers (the tags and
// show handlers) that need to enumerate configured virtual models rather
// than resolve a single one.
func (r *Resolver) Groups() map[string]*domain.ModelGroup {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups
}

func (r *Resolver) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*domain.ResolvedModel)
}

// Resolve implements spec §4.6's three-step lookup, caching the result per
// input string.
func (r *Resolver) Resolve(model string) (*domain.ResolvedModel, error) {
	r.mu.RLock()
	if cached, ok := r.cache[model]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	resolved, err := r.resolveUncached(model)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[model] = resolved
	r.mu.Unlock()

	return resolved, nil
}

func (r *Resolver) resolveUncached(model string) (*domain.ResolvedModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if group, inner, ok := strings.Cut(model, "/"); ok {
		if g, exists := r.groups[group]; exists {
			if _, hasModel := g.AvailableModels[inner]; hasModel {
				return &domain.ResolvedModel{Group: g, VirtualName: inner}, nil
			}
		}
	}

	if hits, ok := r.reverse[model]; ok && len(hits) > 0 {
		hit := hits[0]
		return &domain.ResolvedModel{Group: hit.group, VirtualName: hit.virtual}, nil
	}

	if local, ok := r.groups[domain.LocalGroupName]; ok {
		return &domain.ResolvedModel{Group: local, VirtualName: model}, nil
	}

	return nil, &domain.NotFoundError{Model: model}
}

// Candidates implements spec §4.6's failover list construction.
func (r *Resolver) Candidates(resolved *domain.ResolvedModel, inputModel string) ([]domain.Candidate, error) {
	if resolved.Group.Name == domain.LocalGroupName {
		return []domain.Candidate{{RouterName: domain.LocalRouterName, ActualModel: inputModel}}, nil
	}

	details, ok := resolved.Group.AvailableModels[resolved.VirtualName]
	fallbackActual := resolved.VirtualName
	if ok && details.ActualModel != "" {
		fallbackActual = details.ActualModel
	}

	candidates := make([]domain.Candidate, 0, len(resolved.Group.Endpoints))
	for _, ep := range resolved.Group.Endpoints {
		actual := ep.ActualModel(resolved.VirtualName, fallbackActual)
		if actual == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Endpoint:    ep,
			RouterName:  r.registry.RouterNameFor(ep),
			ActualModel: actual,
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("model group %q has no usable backends for %q", resolved.Group.Name, resolved.VirtualName)
	}
	return candidates, nil
}
