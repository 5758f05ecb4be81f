// Package constants centralises string literals shared across adapters so
// a typo in a header name or path fails at compile time rather than at
// runtime in some corner of the proxy.
package constants

import "time"

const (
	HeaderContentType     = "Content-Type"
	HeaderAuthorization   = "Authorization"
	HeaderAPIKeyAnthropic = "x-api-key"
	HeaderAcceptEncoding  = "Accept-Encoding"
	HeaderUserAgent       = "User-Agent"

	ContentTypeJSON      = "application/json"
	ContentTypeNDJSON    = "application/x-ndjson"
	ContentTypeEventSSE  = "text/event-stream"
	AcceptEncodingValues = "gzip, deflate, br"
)

const (
	PathAPITags             = "/api/tags"
	PathAPIGenerate         = "/api/generate"
	PathAPIShow             = "/api/show"
	PathAPIVersion          = "/api/version"
	PathAPIPassthroughStem  = "/api/"
	PathV1ChatCompletions   = "/v1/chat/completions"
	UpstreamChatCompletions = "/chat/completions"
	UpstreamGenerate        = "/api/generate"
	UpstreamTags            = "/api/tags"
)

const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 11535
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Context keys used to pass per-request metadata without an import cycle
// back into the handlers package.
type ContextKey string

const (
	ContextRequestIDKey ContextKey = "request_id"
	ContextDialectKey   ContextKey = "dialect"
)

// Dialect is the inbound request shape, which determines whether the
// response needs OpenAI->Ollama shape translation on the way back out.
type Dialect string

const (
	DialectOllama Dialect = "ollama"
	DialectOpenAI Dialect = "openai"
)
