package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileWriteDelay gives a just-written file time to settle before
	// we reread it; editors and atomic-rename writers can otherwise trigger
	// a reload against a half-written file.
	DefaultFileWriteDelay = 150 * time.Millisecond

	envPrefix = "OLLABRIDGE"
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// Load reads path (plus any "*.local.yaml" / "*.personal.yaml" sibling
// overrides, spec §6) and environment variables into a Config. If path
// does not exist the defaults are returned unchanged, since running with
// only the local Ollama daemon configured is a valid starting point.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	doc, err := loadMergedDocument(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if doc == nil {
		applyEnv(cfg)
		return cfg, nil
	}

	merged, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("remarshalling merged config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(string(merged))); err != nil {
		return nil, fmt.Errorf("parsing merged config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding merged config: %w", err)
	}

	models, err := decodeModels(doc)
	if err != nil {
		return nil, err
	}
	if models != nil {
		cfg.Models = models
	}
	applyBackendDefaults(cfg)
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyBackendDefaults fills per-backend timeouts from the proxy-level
// default so config authors don't have to repeat it on every entry.
func applyBackendDefaults(cfg *Config) {
	defaultTimeout := cfg.Proxy.DefaultTimeout
	if defaultTimeout == 0 {
		defaultTimeout = 30 * time.Second
	}
	for name, group := range cfg.Models {
		for i := range group.Backends {
			group.Backends[i].Timeout = durationOrDefault(group.Backends[i].Timeout, defaultTimeout)
		}
		cfg.Models[name] = group
	}
}

// applyEnv layers in the one environment override the proxy recognises: an
// API key for a model group's primary backend can be supplied as
// "<GROUP>_API_KEY" (group name upper-cased, non-alphanumerics mapped to
// "_") without editing the YAML at all, which matters for secrets that
// shouldn't live in a checked-in config file. No other setting is read
// from the environment; Load does not map OLLABRIDGE_* variables.
func applyEnv(cfg *Config) {
	for name, group := range cfg.Models {
		envName := strings.ToUpper(sanitizeEnvName(name)) + "_API_KEY"
		if key, ok := os.LookupEnv(envName); ok && len(group.Backends) > 0 {
			group.Backends[0].APIKey = key
			cfg.Models[name] = group
		}
	}
}

func sanitizeEnvName(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, s)
}

// Watch reads the primary config file and its siblings on change and
// invokes onChange with the freshly loaded Config. It debounces bursts of
// filesystem events (editors often emit several per save) the same way the
// teacher's viper.WatchConfig callback did.
func Watch(path string, onChange func(*Config, error)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	dirsSeen := make(map[string]bool)
	watchDir := func(p string) {
		dir := dirOf(p)
		if dirsSeen[dir] {
			return
		}
		if err := watcher.Add(dir); err == nil {
			dirsSeen[dir] = true
		}
	}
	watchDir(path)
	for _, s := range siblingConfigs(path) {
		watchDir(s)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				reloadMutex.Lock()
				now := time.Now()
				if now.Sub(lastReload) < 500*time.Millisecond {
					reloadMutex.Unlock()
					continue
				}
				lastReload = now
				reloadMutex.Unlock()

				time.Sleep(DefaultFileWriteDelay)
				cfg, err := Load(path)
				onChange(cfg, err)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onChange(nil, err)
			}
		}
	}()

	return watcher, nil
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "."
}
