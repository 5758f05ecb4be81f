// Package app wires every component (C1-C9) into a running proxy: it loads
// configuration, builds the client pool, caches, router registry, local
// probe, resolver and dispatcher, registers the inbound HTTP surface, and
// starts the listener. Grounded on the teacher's internal/app package
// lifecycle shape (New/Start/Stop) and internal/app/handlers/server.go's
// startWebServer, generalised from its discovery/health/security wiring to
// this proxy's resolve-dispatch-failover wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pterm/pterm"

	"github.com/thushan/ollabridge/internal/adapter/cache"
	"github.com/thushan/ollabridge/internal/adapter/pool"
	"github.com/thushan/ollabridge/internal/adapter/probe"
	"github.com/thushan/ollabridge/internal/adapter/registry"
	"github.com/thushan/ollabridge/internal/app/handlers"
	"github.com/thushan/ollabridge/internal/app/middleware"
	"github.com/thushan/ollabridge/internal/config"
	"github.com/thushan/ollabridge/internal/dispatch"
	"github.com/thushan/ollabridge/internal/logger"
	"github.com/thushan/ollabridge/internal/resolver"
	"github.com/thushan/ollabridge/internal/router"
)

// Application owns every long-lived component and the HTTP server built on
// top of them.
type Application struct {
	cfg      *config.Config
	server   *http.Server
	logger   *slog.Logger
	styled   logger.StyledLogger
	registry *router.RouteRegistry

	pool       *pool.Pool
	probe      *probe.Probe
	backends   *registry.Registry
	resolver   *resolver.Resolver
	dispatch   *dispatch.Dispatcher
	handlers   *handlers.Application
	watcher    *fsnotify.Watcher
	configPath string

	errCh chan error
}

// New builds every component and wires them together, but does not start
// the listener or the config watcher; call Start for that.
func New(cfgPath string, cfg *config.Config, log *slog.Logger, styled logger.StyledLogger) (*Application, error) {
	clientPool := pool.New(cfg.Proxy.ClientHealthTimeout, log)

	localProbe := probe.New(cfg.LocalOllama.BaseURL, cfg.LocalOllama.ProbeTimeout, cfg.LocalOllama.ProbeTTL, cfg.LocalOllama.SimulateDown, styled)

	caches := cache.Config{
		PromptCacheMaxEntries: cfg.Proxy.PromptCacheMaxEntries,
		PromptCacheTTL:        cfg.Proxy.PromptCacheTTL,
		ToolCacheMaxEntries:   cfg.Proxy.ToolCacheMaxEntries,
		ToolCacheTTL:          cfg.Proxy.ToolCacheTTL,
		PromptElisionOn:       cfg.Proxy.PromptElisionOn,
		ToolCompressionOn:     cfg.Proxy.ToolCompressionOn,
	}

	backendRegistry := registry.New(clientPool, localProbe, log, caches)
	backendRegistry.RegisterLocal(cfg.LocalOllama.BaseURL, cfg.Proxy.DefaultTimeout.Milliseconds())

	groups := resolver.BuildGroups(cfg)
	modelResolver := resolver.New(groups, backendRegistry)

	dispatcher := dispatch.New(modelResolver, backendRegistry, log)

	app := handlers.New(cfg, dispatcher, modelResolver, localProbe, clientPool, log, styled)

	routeRegistry := router.NewRouteRegistry(styled)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		server:     server,
		logger:     log,
		styled:     styled,
		registry:   routeRegistry,
		pool:       clientPool,
		probe:      localProbe,
		backends:   backendRegistry,
		resolver:   modelResolver,
		dispatch:   dispatcher,
		handlers:   app,
		configPath: cfgPath,
		errCh:      make(chan error, 1),
	}, nil
}

// Start wires the HTTP routes, starts the listener, and — if a config path
// was given — starts watching it for hot reload.
func (a *Application) Start(ctx context.Context) error {
	go func() {
		select {
		case err := <-a.errCh:
			a.logger.Error("server startup error", "error", err)
		case <-ctx.Done():
		}
	}()

	a.logStartupSummary()
	a.startWebServer()
	a.watchProbeEvents(ctx)

	if a.configPath != "" {
		watcher, err := config.Watch(a.configPath, a.onConfigChange)
		if err != nil {
			a.logger.Warn("config watch unavailable, hot reload disabled", "error", err)
		} else {
			a.watcher = watcher
		}
	}

	a.logger.Info("ollabridge started", "bind", a.server.Addr)
	return nil
}

// Stop drains the config watcher and shuts the HTTP server down within the
// configured grace period.
func (a *Application) Stop(ctx context.Context) error {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.pool.CloseAll()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// onConfigChange is config.Watch's reload callback: a new group set is
// built from the reloaded config and swapped into the resolver, which
// invalidates its resolution cache as part of the swap (spec §4.6).
func (a *Application) onConfigChange(cfg *config.Config, err error) {
	if err != nil {
		a.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	a.cfg = cfg
	groups := resolver.BuildGroups(cfg)
	a.resolver.Reload(groups)
	a.styled.Info("configuration reloaded", "groups", len(groups))
}

// watchProbeEvents relays local-daemon liveness transitions published on the
// probe's event bus into the structured log, independently of the inline
// ProbeUp/ProbeDown calls the probe already makes — demonstrating the bus as
// a seam other subscribers (a status page, a metrics exporter) can attach to
// later without touching the probe itself.
func (a *Application) watchProbeEvents(ctx context.Context) {
	events, _ := a.probe.Subscribe(ctx)
	go func() {
		for evt := range events {
			a.logger.Debug("probe event observed", "name", evt.Name, "up", evt.Up, "reason", evt.Reason)
		}
	}()
}

// logStartupSummary prints a one-time table of every configured group, its
// virtual models, and its failover-ordered backend chain before the server
// starts accepting traffic — recovered from original_source/main.py's
// startup report, rendered the way internal/router.RouteRegistry renders
// its own routes table.
func (a *Application) logStartupSummary() {
	groups := a.resolver.Groups()
	if len(groups) == 0 {
		a.styled.Warn("no model groups configured")
		return
	}

	tableData := [][]string{
		{"GROUP", "VIRTUAL MODELS", "BACKEND CHAIN"},
	}
	for name, group := range groups {
		models := make([]string, 0, len(group.AvailableModels))
		for virtual := range group.AvailableModels {
			models = append(models, virtual)
		}
		sort.Strings(models)

		chain := make([]string, 0, len(group.Endpoints))
		for _, ep := range group.Endpoints {
			chain = append(chain, fmt.Sprintf("%s(%s)", ep.Name, ep.BackendType))
		}

		tableData = append(tableData, []string{
			name,
			strings.Join(models, ", "),
			strings.Join(chain, " -> "),
		})
	}

	a.styled.InfoWithCount("Loaded model groups", len(groups))
	tableString, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	fmt.Print(tableString)
}

func (a *Application) registerRoutes() {
	a.registry.RegisterWithMethod("/api/generate", a.handlers.HandleGenerate, "Ollama generate endpoint", http.MethodPost)
	a.registry.RegisterWithMethod("/v1/chat/completions", a.handlers.HandleChatCompletions, "OpenAI chat completions endpoint", http.MethodPost)
	a.registry.RegisterWithMethod("/api/tags", a.handlers.HandleTags, "List available models", http.MethodGet)
	a.registry.RegisterWithMethod("/api/show", a.handlers.HandleShow, "Show model details", http.MethodPost)
	a.registry.RegisterWithMethod("/api/version", a.handlers.HandleVersion, "Local daemon version", http.MethodGet)
	a.registry.RegisterAny("/api/", a.handlers.HandlePassthrough, "Generic Ollama API passthrough")
}

func (a *Application) startWebServer() {
	a.logger.Info("starting web server", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port,
		"read_timeout", a.cfg.Server.ReadTimeout, "write_timeout", a.cfg.Server.WriteTimeout)

	mux := http.NewServeMux()
	a.registerRoutes()
	a.registry.WireUp(mux)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
			a.errCh <- err
		}
	}()

	a.server.Handler = middleware.EnhancedLoggingMiddleware(a.styled)(mux)
	a.logger.Info("started web server", "bind", a.server.Addr)
}
