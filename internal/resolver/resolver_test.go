package resolver

import (
	"context"
	"testing"

	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

type simpleRegistry struct{}

func (simpleRegistry) Get(name string) (ports.BackendRouter, bool)   { return nil, false }
func (simpleRegistry) RouterNameFor(ep *domain.BackendEndpoint) string { return "router-" + ep.Name }
func (simpleRegistry) LocalRouterName(ctx context.Context) string    { return domain.LocalRouterName }

func testGroups() map[string]*domain.ModelGroup {
	coding := &domain.ModelGroup{
		Name: "coding",
		AvailableModels: map[string]domain.ModelDetails{
			"gpt4": {ActualModel: "gpt-4-turbo"},
		},
		Endpoints: []*domain.BackendEndpoint{
			domain.NewBackendEndpoint("primary", "coding", "https://api.openai.com", "sk-x", "openai_backend", domain.BackendTypeOpenAI, 5000, false, nil, nil),
		},
	}
	local := &domain.ModelGroup{Name: "local", AvailableModels: map[string]domain.ModelDetails{}}
	return map[string]*domain.ModelGroup{"coding": coding, "local": local}
}

func TestResolve_ExplicitGroupSlashInner(t *testing.T) {
	r := New(testGroups(), simpleRegistry{})
	resolved, err := r.Resolve("coding/gpt4")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Group.Name != "coding" || resolved.VirtualName != "gpt4" {
		t.Errorf("unexpected resolution: %+v", resolved)
	}
}

func TestResolve_ReverseIndexByInnerName(t *testing.T) {
	r := New(testGroups(), simpleRegistry{})
	resolved, err := r.Resolve("gpt4")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Group.Name != "coding" {
		t.Errorf("expected coding group, got %s", resolved.Group.Name)
	}
}

func TestResolve_FallsBackToLocalGroup(t *testing.T) {
	r := New(testGroups(), simpleRegistry{})
	resolved, err := r.Resolve("llama3")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Group.Name != "local" || resolved.VirtualName != "llama3" {
		t.Errorf("unexpected resolution: %+v", resolved)
	}
}

func TestResolve_FailsWhenNoLocalGroupAndNoMatch(t *testing.T) {
	groups := map[string]*domain.ModelGroup{"coding": testGroups()["coding"]}
	r := New(groups, simpleRegistry{})
	if _, err := r.Resolve("nonexistent"); err == nil {
		t.Error("expected NotFoundError")
	}
}

func TestCandidates_LocalGroupReturnsSingleCandidate(t *testing.T) {
	r := New(testGroups(), simpleRegistry{})
	resolved := &domain.ResolvedModel{Group: testGroups()["local"], VirtualName: "llama3"}
	candidates, err := r.Candidates(resolved, "llama3")
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].RouterName != domain.LocalRouterName {
		t.Errorf("expected single local candidate, got %+v", candidates)
	}
}

func TestCandidates_GroupEndpointsMapToCandidates(t *testing.T) {
	groups := testGroups()
	r := New(groups, simpleRegistry{})
	resolved := &domain.ResolvedModel{Group: groups["coding"], VirtualName: "gpt4"}
	candidates, err := r.Candidates(resolved, "coding/gpt4")
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ActualModel != "gpt-4-turbo" {
		t.Errorf("unexpected candidates: %+v", candidates)
	}
}

func TestInvalidateCache_ForcesFreshResolution(t *testing.T) {
	groups := testGroups()
	r := New(groups, simpleRegistry{})
	if _, err := r.Resolve("gpt4"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	r.InvalidateCache()
	if _, err := r.Resolve("gpt4"); err != nil {
		t.Fatalf("Resolve after invalidate failed: %v", err)
	}
}
