// Package handlers implements the inbound HTTP surface (spec §4.8): the
// endpoints the proxy exposes, each resolving its model string, dispatching
// through the failover engine, and translating the response shape
// according to the request's dialect. Grounded on the teacher's
// internal/app/handlers/handler_proxy.go request-lifecycle shape (init,
// analyse, dispatch, log), simplified from its multi-provider inspection
// pipeline down to this proxy's single resolve-then-dispatch step.
package handlers

import (
	"context"
	"log/slog"

	"github.com/thushan/ollabridge/internal/config"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
	"github.com/thushan/ollabridge/internal/dispatch"
	"github.com/thushan/ollabridge/internal/logger"
)

// dispatcher narrows *dispatch.Dispatcher to the one method handlers call,
// so tests can substitute a fake without wiring a resolver and registry.
type dispatcher interface {
	Dispatch(ctx context.Context, model string, body map[string]any, stream bool) (*dispatch.Result, error)
}

// modelResolver is ports.Resolver plus the group enumeration the tags and
// show handlers need to synthesize virtual model listings.
type modelResolver interface {
	ports.Resolver
	Groups() map[string]*domain.ModelGroup
}

// Application holds the dependencies every handler needs. Request caching
// (C2) is no longer held here: each backend router owns its own
// PromptCache/ToolsCache pair and applies them before dispatching, per
// spec.md's "BackendRouter ... exclusively owns its caches".
type Application struct {
	cfg        *config.Config
	dispatcher dispatcher
	resolver   modelResolver
	probe      ports.LocalProbe
	pool       ports.ClientPool
	logger     *slog.Logger
	styled     logger.StyledLogger
}

func New(cfg *config.Config, dispatcher *dispatch.Dispatcher, resolver modelResolver, probe ports.LocalProbe, pool ports.ClientPool, log *slog.Logger, styled logger.StyledLogger) *Application {
	return &Application{
		cfg:        cfg,
		dispatcher: dispatcher,
		resolver:   resolver,
		probe:      probe,
		pool:       pool,
		logger:     log,
		styled:     styled,
	}
}
