// Package domain holds the core entities of the proxy: backend endpoints,
// model groups, resolved models and the candidate list used for failover.
package domain

import (
	"strings"
)

// BackendType is the concrete driver that handles a BackendEndpoint.
type BackendType string

const (
	BackendTypeOpenAI BackendType = "openai"
	BackendTypeOllama BackendType = "ollama"
	BackendTypeMock   BackendType = "mock"
)

// BackendMode is the configuration-level tag a backend entry was declared
// under, e.g. "openai_backend", "litellm_backend". It is preserved for
// logging and factory decisions even after BackendType has been derived.
type BackendMode string

const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "x-api-key"
	ContentTypeJSON     = "application/json"
)

// BackendEndpoint is the concrete target of one upstream call. It is
// immutable after construction; ModelGroup owns the slice it lives in.
type BackendEndpoint struct {
	Headers             map[string]string
	ModelMapping        map[string]string
	ModelGroup          string
	BaseURL             string
	APIKey              string
	Name                string
	BackendMode         BackendMode
	BackendType         BackendType
	Timeout             int64 // milliseconds
	CompressionEnabled  bool
	APIKeyIsPlaceholder bool
}

// NewBackendEndpoint builds a BackendEndpoint, normalising BaseURL and
// computing the default header set described in spec §3: Content-Type is
// always set, and exactly one of Authorization/x-api-key is added based on
// whether the host looks like Anthropic.
func NewBackendEndpoint(name, group, baseURL, apiKey string, backendMode BackendMode, backendType BackendType, timeoutMs int64, compression bool, extraHeaders map[string]string, modelMapping map[string]string) *BackendEndpoint {
	ep := &BackendEndpoint{
		Name:               name,
		ModelGroup:         group,
		BaseURL:            strings.TrimRight(baseURL, "/"),
		APIKey:             apiKey,
		BackendMode:        backendMode,
		BackendType:        backendType,
		Timeout:            timeoutMs,
		CompressionEnabled: compression,
		ModelMapping:       modelMapping,
	}

	ep.APIKeyIsPlaceholder = isPlaceholderKey(apiKey)

	headers := make(map[string]string, len(extraHeaders)+2)
	for k, v := range extraHeaders {
		headers[k] = v
	}
	headers[HeaderContentType] = ContentTypeJSON
	if apiKey != "" {
		if strings.Contains(ep.BaseURL, "anthropic.com") {
			headers[HeaderAPIKey] = apiKey
		} else {
			headers[HeaderAuthorization] = "Bearer " + apiKey
		}
	}
	ep.Headers = headers

	return ep
}

func isPlaceholderKey(key string) bool {
	return strings.Contains(key, "your-") || strings.Contains(key, "***")
}

// ActualModel resolves the upstream-facing model name for a given virtual
// model name, consulting ModelMapping first (recovered from
// original_source/config_loader.py) and falling back to the caller-supplied
// actual model from ModelDetails.
func (e *BackendEndpoint) ActualModel(virtual, fallback string) string {
	if e.ModelMapping != nil {
		if mapped, ok := e.ModelMapping[virtual]; ok && mapped != "" {
			return mapped
		}
	}
	return fallback
}
