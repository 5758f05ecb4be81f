package dispatch

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

type fakeRouter struct {
	name   domain.BackendType
	result *ports.HandleResult
	stream *ports.StreamResult
	err    error
}

func (f *fakeRouter) Name() domain.BackendType { return f.name }
func (f *fakeRouter) ToOllama(body map[string]any, virtualModel string) map[string]any {
	return body
}
func (f *fakeRouter) Handle(ctx context.Context, actualModel string, body map[string]any, stream bool, supportThinking bool) (*ports.HandleResult, *ports.StreamResult, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.result, f.stream, nil
}

type fakeResolver struct {
	resolved   *domain.ResolvedModel
	candidates []domain.Candidate
	err        error
}

func (f *fakeResolver) Resolve(model string) (*domain.ResolvedModel, error) { return f.resolved, f.err }
func (f *fakeResolver) Candidates(resolved *domain.ResolvedModel, inputModel string) ([]domain.Candidate, error) {
	return f.candidates, nil
}
func (f *fakeResolver) InvalidateCache() {}

type fakeRegistry struct {
	routers map[string]ports.BackendRouter
}

func (f *fakeRegistry) Get(name string) (ports.BackendRouter, bool) {
	r, ok := f.routers[name]
	return r, ok
}
func (f *fakeRegistry) RouterNameFor(ep *domain.BackendEndpoint) string { return "" }
func (f *fakeRegistry) LocalRouterName(ctx context.Context) string     { return "local-resolved" }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestDispatch_FirstCandidateSucceeds(t *testing.T) {
	resolver := &fakeResolver{
		resolved:   &domain.ResolvedModel{Group: &domain.ModelGroup{Name: "coding"}, VirtualName: "gpt4"},
		candidates: []domain.Candidate{{RouterName: "r1", ActualModel: "gpt-4"}},
	}
	registry := &fakeRegistry{routers: map[string]ports.BackendRouter{
		"r1": &fakeRouter{name: domain.BackendTypeOpenAI, result: &ports.HandleResult{Body: map[string]any{"ok": true}}},
	}}
	d := New(resolver, registry, discardLogger())

	result, err := d.Dispatch(context.Background(), "coding/gpt4", map[string]any{}, false)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.HandleResult.Body["ok"] != true {
		t.Errorf("unexpected result: %+v", result.HandleResult)
	}
}

func TestDispatch_FailsOverToSecondCandidate(t *testing.T) {
	resolver := &fakeResolver{
		resolved: &domain.ResolvedModel{Group: &domain.ModelGroup{Name: "coding"}, VirtualName: "gpt4"},
		candidates: []domain.Candidate{
			{RouterName: "r1", ActualModel: "gpt-4"},
			{RouterName: "r2", ActualModel: "gpt-4"},
		},
	}
	registry := &fakeRegistry{routers: map[string]ports.BackendRouter{
		"r1": &fakeRouter{name: domain.BackendTypeOpenAI, err: &domain.TransportError{RouterName: "r1"}},
		"r2": &fakeRouter{name: domain.BackendTypeOpenAI, result: &ports.HandleResult{Body: map[string]any{"ok": true}}},
	}}
	d := New(resolver, registry, discardLogger())

	result, err := d.Dispatch(context.Background(), "coding/gpt4", map[string]any{}, false)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.HandleResult.Body["ok"] != true {
		t.Errorf("expected failover to succeed on second candidate, got %+v", result.HandleResult)
	}
}

func TestDispatch_AllCandidatesFailReturnsDispatchError(t *testing.T) {
	resolver := &fakeResolver{
		resolved:   &domain.ResolvedModel{Group: &domain.ModelGroup{Name: "coding"}, VirtualName: "gpt4"},
		candidates: []domain.Candidate{{RouterName: "r1", ActualModel: "gpt-4"}},
	}
	registry := &fakeRegistry{routers: map[string]ports.BackendRouter{
		"r1": &fakeRouter{name: domain.BackendTypeOpenAI, err: &domain.TransportError{RouterName: "r1"}},
	}}
	d := New(resolver, registry, discardLogger())

	_, err := d.Dispatch(context.Background(), "coding/gpt4", map[string]any{}, false)
	if err == nil {
		t.Fatal("expected DispatchError")
	}
	if _, ok := err.(*domain.DispatchError); !ok {
		t.Errorf("expected *domain.DispatchError, got %T", err)
	}
}

func TestDispatch_LocalCandidateResolvesThroughRegistry(t *testing.T) {
	resolver := &fakeResolver{
		resolved:   &domain.ResolvedModel{Group: &domain.ModelGroup{Name: "local"}, VirtualName: "llama3"},
		candidates: []domain.Candidate{{RouterName: domain.LocalRouterName, ActualModel: "llama3"}},
	}
	registry := &fakeRegistry{routers: map[string]ports.BackendRouter{
		"local-resolved": &fakeRouter{name: domain.BackendTypeMock, result: &ports.HandleResult{Body: map[string]any{"mocked": true}}},
	}}
	d := New(resolver, registry, discardLogger())

	result, err := d.Dispatch(context.Background(), "llama3", map[string]any{}, false)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if result.HandleResult.Body["mocked"] != true {
		t.Errorf("expected local candidate to resolve via registry, got %+v", result.HandleResult)
	}
}
