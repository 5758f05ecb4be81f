package config

import "time"

// Config is the root of the proxy's configuration document (spec §6):
// top-level sections "server", "proxy", "local_ollama", "routing", "logging"
// and "models".
type Config struct {
	Models      map[string]ModelGroupConfig `yaml:"models"`
	Server      ServerConfig                `yaml:"server"`
	Proxy       ProxyConfig                 `yaml:"proxy"`
	LocalOllama LocalOllamaConfig           `yaml:"local_ollama"`
	Routing     RoutingConfig               `yaml:"routing"`
	Logging     LoggingConfig               `yaml:"logging"`
}

// ServerConfig is the listener configuration for the inbound HTTP surface.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProxyConfig controls the shared client pool and caches.
type ProxyConfig struct {
	ToolCacheTTL          time.Duration `yaml:"tool_cache_ttl"`
	PromptCacheTTL        time.Duration `yaml:"prompt_cache_ttl"`
	ToolCacheMaxEntries   int           `yaml:"tool_cache_max_entries"`
	PromptCacheMaxEntries int           `yaml:"prompt_cache_max_entries"`
	ClientPoolIdleHealth  time.Duration `yaml:"client_pool_idle_health_interval"`
	ClientHealthTimeout   time.Duration `yaml:"client_health_timeout"`
	DefaultTimeout        time.Duration `yaml:"default_timeout"`
	ToolCompressionOn     bool          `yaml:"tool_compression_enabled"`
	PromptElisionOn       bool          `yaml:"prompt_elision_enabled"`
}

// LocalOllamaConfig points at the local daemon consulted by C9 and used as
// the "local" candidate's endpoint.
type LocalOllamaConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	ProbeTTL     time.Duration `yaml:"probe_ttl"`
	SimulateDown bool          `yaml:"simulate_down"`
}

// RoutingConfig carries miscellaneous routing policy flags recovered from
// original_source/config_loader.py that spec.md leaves implicit.
type RoutingConfig struct {
	SDKRecheckInterval time.Duration `yaml:"sdk_recheck_interval"`
}

// LoggingConfig mirrors internal/logger.Config's shape for the parts that
// are user-facing configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Theme      string `yaml:"theme"`
	LogDir     string `yaml:"log_dir"`
	MaxSize    int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age_days"`
	FileOutput bool   `yaml:"file_output"`
	PrettyLogs bool   `yaml:"pretty"`
}

// AvailableModelConfig is one virtual model entry under a group.
type AvailableModelConfig struct {
	ActualModel     string   `yaml:"actual_model"`
	Capabilities    []string `yaml:"capabilities"`
	ContextLength   int64    `yaml:"context_length"`
	EmbeddingLength int64    `yaml:"embedding_length"`
}

// BackendEntryConfig is one "<mode>_backend" entry under a model group. The
// loader preserves the order these keys appear in the YAML document, since
// that order is the failover order (spec §3).
type BackendEntryConfig struct {
	Headers            map[string]string `yaml:"headers"`
	ModelMapping       map[string]string `yaml:"model_mapping"`
	BaseURL            string            `yaml:"base_url"`
	APIKey             string            `yaml:"api_key"`
	BackendType        string            `yaml:"backend_type"`
	Key                string            `yaml:"-"` // the "<mode>_backend" key itself
	Timeout            time.Duration     `yaml:"timeout"`
	CompressionEnabled *bool             `yaml:"compression_enabled"`
}

// ModelGroupConfig is one entry under the top-level "models" map.
type ModelGroupConfig struct {
	AvailableModels map[string]AvailableModelConfig `yaml:"available_models"`
	Description     string                          `yaml:"description"`
	Backends        []BackendEntryConfig            `yaml:"-"` // populated by the ordered YAML pass
}

// DefaultConfig returns a configuration with sensible defaults, mirroring
// the teacher's DefaultConfig() shape (internal/config/config.go).
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            11535,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Proxy: ProxyConfig{
			ToolCacheTTL:          300 * time.Second,
			PromptCacheTTL:        300 * time.Second,
			ToolCacheMaxEntries:   100,
			PromptCacheMaxEntries: 100,
			ClientPoolIdleHealth:  30 * time.Second,
			ClientHealthTimeout:   2 * time.Second,
			DefaultTimeout:        30 * time.Second,
			ToolCompressionOn:     true,
			PromptElisionOn:       true,
		},
		LocalOllama: LocalOllamaConfig{
			BaseURL:      "http://localhost:11434",
			ProbeTimeout: 1 * time.Second,
			ProbeTTL:     5 * time.Second,
		},
		Routing: RoutingConfig{
			SDKRecheckInterval: 300 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			PrettyLogs: true,
		},
		Models: map[string]ModelGroupConfig{
			"local": {Description: "catch-all for models served by the local Ollama daemon"},
		},
	}
}
