package domain

// LocalGroupName is the reserved group name that acts as a catch-all for
// model strings that resolve to no configured group; it has no required
// AvailableModels entries (spec §3 invariant).
const LocalGroupName = "local"

// MockRouterName is the always-registered router name for the built-in mock
// driver (spec §4.5).
const MockRouterName = "mock"

// LocalRouterName is the reserved candidate/router name meaning "dispatch
// locally", which C7 resolves to either the ollama driver bound to the
// local Ollama base URL, or the mock driver, depending on C9's liveness
// verdict.
const LocalRouterName = "local"

// ModelDetails describes one virtual model entry under a ModelGroup.
type ModelDetails struct {
	Capabilities    []string
	ActualModel     string
	ContextLength   int64
	EmbeddingLength int64
}

// HasCapability reports whether the named capability (e.g. "thinking") is
// declared for this model.
func (d ModelDetails) HasCapability(name string) bool {
	for _, c := range d.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}

// ModelGroup is a named bucket of backend endpoints sharing virtual models.
type ModelGroup struct {
	AvailableModels map[string]ModelDetails
	Name            string
	Description     string
	Endpoints       []*BackendEndpoint
}

// ResolvedModel is the resolver's output for a user-facing model string.
// It is derived, never stored.
type ResolvedModel struct {
	Group       *ModelGroup
	VirtualName string
}

// Candidate is one element of a failover list.
type Candidate struct {
	Endpoint    *BackendEndpoint // nil for the "local" candidate
	RouterName  string
	ActualModel string
}
