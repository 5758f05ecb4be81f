package cache

import "time"

// Config is the per-router cache sizing/gating the registry (C5) hands to
// each backend router at construction time, so every router instance can
// build its own PromptCache/ToolsCache pair instead of sharing one
// proxy-wide pair across backends.
type Config struct {
	PromptCacheMaxEntries int
	PromptCacheTTL        time.Duration
	ToolCacheMaxEntries   int
	ToolCacheTTL          time.Duration
	PromptElisionOn       bool
	ToolCompressionOn     bool
}
