package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// decodeModels walks the merged document's "models" mapping directly,
// rather than through viper/mapstructure, because a model group's
// "<mode>_backend" entries are dynamically-named keys whose declaration
// order is significant (it is the failover order, spec §3) and viper's
// Unmarshal has no notion of key order once a map is involved.
func decodeModels(doc *yaml.Node) (map[string]ModelGroupConfig, error) {
	if doc == nil {
		return nil, nil
	}
	modelsNode := findKey(doc, "models")
	if modelsNode == nil || modelsNode.Kind != yaml.MappingNode {
		return nil, nil
	}

	groups := make(map[string]ModelGroupConfig)
	for i := 0; i+1 < len(modelsNode.Content); i += 2 {
		groupName := modelsNode.Content[i].Value
		groupNode := modelsNode.Content[i+1]
		if groupNode.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("models.%s: expected a mapping", groupName)
		}
		group, err := decodeModelGroup(groupName, groupNode)
		if err != nil {
			return nil, err
		}
		groups[groupName] = group
	}
	return groups, nil
}

func decodeModelGroup(name string, node *yaml.Node) (ModelGroupConfig, error) {
	var group ModelGroupConfig

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		switch {
		case key == "description":
			group.Description = val.Value
		case key == "available_models":
			models := make(map[string]AvailableModelConfig)
			for j := 0; j+1 < len(val.Content); j += 2 {
				virtual := val.Content[j].Value
				var m AvailableModelConfig
				if err := val.Content[j+1].Decode(&m); err != nil {
					return group, fmt.Errorf("models.%s.available_models.%s: %w", name, virtual, err)
				}
				models[virtual] = m
			}
			group.AvailableModels = models
		case strings.HasSuffix(key, "_backend"):
			var entry BackendEntryConfig
			if err := val.Decode(&entry); err != nil {
				return group, fmt.Errorf("models.%s.%s: %w", name, key, err)
			}
			entry.Key = key
			entry.BaseURL = expandEnv(entry.BaseURL)
			entry.APIKey = expandEnv(entry.APIKey)
			if alias, ok := backendTypeAliases[entry.BackendType]; ok {
				entry.BackendType = alias
			} else if entry.BackendType == "" {
				entry.BackendType = inferBackendType(key, entry.BaseURL)
			}
			group.Backends = append(group.Backends, entry)
		default:
			// unrecognised key under a model group; ignore rather than fail,
			// so a config file can carry forward-looking comments or fields.
		}
	}
	return group, nil
}

func findKey(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// backendTypeAliases folds the explicit backend_type spellings accepted in
// configuration (spec §4.5's factory alias table) onto the three concrete
// driver names the registry knows how to construct.
var backendTypeAliases = map[string]string{
	"http":          "openai",
	"openai_compat": "openai",
	"openai_sdk":    "openai",
	"litellm":       "openai",
}

// inferBackendType mirrors the resolution order in
// original_source/routers/backend_router_factory.py: an explicit
// backend_type wins; failing that, "litellm_backend"/"openai_backend"-style
// keys and well-known API hosts identify OpenAI-compatible backends;
// anything pointing at localhost is treated as Ollama; everything else
// defaults to OpenAI-compatible, since that's the widest wire shape.
func inferBackendType(key, baseURL string) string {
	mode := strings.TrimSuffix(key, "_backend")
	switch mode {
	case "litellm", "openai", "openai_compat":
		return "openai"
	case "ollama", "local":
		return "ollama"
	case "mock":
		return "mock"
	}

	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "openai.com"),
		strings.Contains(lower, "api.deepseek.com"),
		strings.Contains(lower, "api.anthropic.com"):
		return "openai"
	case strings.Contains(lower, "localhost"), strings.Contains(lower, "127.0.0.1"):
		return "ollama"
	default:
		return "openai"
	}
}

func durationOrDefault(d time.Duration, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}
