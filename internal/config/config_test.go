package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 11535 {
		t.Errorf("expected default port 11535, got %d", cfg.Server.Port)
	}
	if cfg.LocalOllama.BaseURL != "http://localhost:11434" {
		t.Errorf("expected default local ollama base url, got %s", cfg.LocalOllama.BaseURL)
	}
	if _, ok := cfg.Models["local"]; !ok {
		t.Error("expected a default 'local' model group")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 11535 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoad_BackendOrderPreserved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
models:
  coding:
    description: "coding assistants"
    available_models:
      coder:
        actual_model: "gpt-4o"
    primary_backend:
      base_url: "https://api.openai.com/v1"
      api_key: "sk-test"
    fallback_backend:
      base_url: "https://api.deepseek.com/v1"
      api_key: "sk-test2"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	group, ok := cfg.Models["coding"]
	if !ok {
		t.Fatal("expected 'coding' model group")
	}
	if len(group.Backends) != 2 {
		t.Fatalf("expected 2 backends, got %d", len(group.Backends))
	}
	if group.Backends[0].Key != "primary_backend" || group.Backends[1].Key != "fallback_backend" {
		t.Errorf("expected primary_backend before fallback_backend, got %s then %s",
			group.Backends[0].Key, group.Backends[1].Key)
	}
	if group.Backends[0].BackendType != "openai" {
		t.Errorf("expected inferred backend_type 'openai', got %s", group.Backends[0].BackendType)
	}
}

func TestLoad_SiblingLocalOverrideMerges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
server:
  port: 11535
models:
  coding:
    primary_backend:
      base_url: "https://api.openai.com/v1"
      api_key: "placeholder-your-key"
`)
	writeFile(t, filepath.Join(dir, "config.local.yaml"), `
models:
  coding:
    primary_backend:
      api_key: "sk-real-local-key"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 11535 {
		t.Errorf("expected base server.port to survive merge, got %d", cfg.Server.Port)
	}
	got := cfg.Models["coding"].Backends[0].APIKey
	if got != "sk-real-local-key" {
		t.Errorf("expected local override to win, got %s", got)
	}
}

func TestLoad_EnvAPIKeyOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
models:
  coding:
    primary_backend:
      base_url: "https://api.openai.com/v1"
      api_key: "placeholder"
`)
	t.Setenv("CODING_API_KEY", "sk-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := cfg.Models["coding"].Backends[0].APIKey
	if got != "sk-from-env" {
		t.Errorf("expected env override to win, got %s", got)
	}
}

func TestValidate_RejectsBackendWithoutBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models["broken"] = ModelGroupConfig{
		Backends: []BackendEntryConfig{{Key: "primary_backend"}},
	}
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for missing base_url")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
