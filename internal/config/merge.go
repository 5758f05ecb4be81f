package config

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// siblingConfigs returns the paths of override files that sit next to the
// primary config file and should be deep-merged over it, in a stable order:
// "<base>.local.yaml" and "<base>.personal.yaml" first if present, then any
// other "*.local.yaml" file in the same directory (sorted), so a directory
// of per-developer overrides merges deterministically.
func siblingConfigs(primary string) []string {
	dir := filepath.Dir(primary)
	ext := filepath.Ext(primary)
	base := primary[:len(primary)-len(ext)]

	seen := make(map[string]bool)
	var out []string

	addIfExists := func(path string) {
		if seen[path] {
			return
		}
		if _, err := os.Stat(path); err == nil {
			seen[path] = true
			out = append(out, path)
		}
	}

	addIfExists(base + ".local" + ext)
	addIfExists(base + ".personal" + ext)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	var extras []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if matched, _ := filepath.Match("*.local"+ext, name); matched {
			extras = append(extras, filepath.Join(dir, name))
		}
	}
	sort.Strings(extras)
	for _, p := range extras {
		addIfExists(p)
	}
	return out
}

// loadMergedDocument reads the primary config file plus any sibling
// overrides and deep-merges them into a single yaml.Node, preserving key
// declaration order within each mapping. Order matters here because the
// order of "<mode>_backend" keys under a model group is the failover order
// (spec §3) and plain map-based merging in Go does not preserve it.
func loadMergedDocument(primary string) (*yaml.Node, error) {
	base, err := parseDocument(primary)
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblingConfigs(primary) {
		override, err := parseDocument(sibling)
		if err != nil {
			return nil, err
		}
		if override != nil {
			base = mergeNodes(base, override)
		}
	}
	return base, nil
}

func parseDocument(path string) (*yaml.Node, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil // the root mapping, skipping the document node
}

// mergeNodes deep-merges override onto base. Scalars and sequences in
// override replace the corresponding base value outright; mappings merge
// key-by-key, with override keys that don't exist in base appended after
// the base's own keys.
func mergeNodes(base, override *yaml.Node) *yaml.Node {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}
	if base.Kind != yaml.MappingNode || override.Kind != yaml.MappingNode {
		return override
	}

	baseIndex := make(map[string]int) // key -> index of value node in base.Content
	for i := 0; i+1 < len(base.Content); i += 2 {
		baseIndex[base.Content[i].Value] = i + 1
	}

	for i := 0; i+1 < len(override.Content); i += 2 {
		key := override.Content[i]
		val := override.Content[i+1]
		if idx, ok := baseIndex[key.Value]; ok {
			base.Content[idx] = mergeNodes(base.Content[idx], val)
		} else {
			base.Content = append(base.Content, key, val)
		}
	}
	return base
}

var envPlaceholder = regexp.MustCompile(`\$\{(\w+)}`)

// expandEnv substitutes "${VAR_NAME}" placeholders with the environment,
// leaving the placeholder untouched if the variable is unset so a missing
// secret surfaces as an obviously-wrong API key rather than an empty one.
func expandEnv(s string) string {
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		name := envPlaceholder.FindStringSubmatch(match)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}
