// Package dispatch implements the failover loop (spec §4.7): resolve a
// model string to candidates via C6, try each in order, rewriting the
// "local" candidate to "mock" when C9 reports the daemon down, and
// returning the first candidate that produces a non-stream result or the
// first byte of a stream. Mid-stream errors never trigger failover; a
// candidate failing before any bytes are produced simply advances to the
// next one.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
)

type Dispatcher struct {
	resolver ports.Resolver
	registry ports.RouterRegistry
	logger   *slog.Logger
}

func New(resolver ports.Resolver, registry ports.RouterRegistry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{resolver: resolver, registry: registry, logger: logger}
}

// Result is the outcome of a dispatched request: exactly one of HandleResult
// or StreamResult is set. RouterType records which backend type actually
// served the request, for the caller's logs; Router is the router itself,
// whose ToOllama the caller uses to translate a non-stream result.
type Result struct {
	HandleResult *ports.HandleResult
	StreamResult *ports.StreamResult
	Router       ports.BackendRouter
	RouterType   domain.BackendType
}

func (d *Dispatcher) Dispatch(ctx context.Context, model string, body map[string]any, stream bool) (*Result, error) {
	start := time.Now()

	resolved, err := d.resolver.Resolve(model)
	if err != nil {
		return nil, err
	}

	candidates, err := d.resolver.Candidates(resolved, model)
	if err != nil {
		return nil, &domain.NotFoundError{Model: model}
	}

	supportThinking := false
	if details, ok := resolved.Group.AvailableModels[resolved.VirtualName]; ok {
		supportThinking = details.HasCapability("thinking")
	}

	var lastErr error
	attempted := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		routerName := candidate.RouterName
		if routerName == domain.LocalRouterName {
			routerName = d.registry.LocalRouterName(ctx)
		}

		router, ok := d.registry.Get(routerName)
		if !ok {
			d.logger.Warn("dispatch: router not found, skipping candidate", "router", routerName, "model", model)
			continue
		}
		attempted = append(attempted, routerName)

		handleResult, streamResult, err := router.Handle(ctx, candidate.ActualModel, body, stream, supportThinking)
		if err != nil {
			d.logger.Warn("dispatch: candidate failed before producing bytes", "router", routerName, "model", model, "error", err)
			lastErr = err
			continue
		}

		if streamResult != nil {
			return &Result{StreamResult: streamResult, Router: router, RouterType: router.Name()}, nil
		}
		return &Result{HandleResult: handleResult, Router: router, RouterType: router.Name()}, nil
	}

	if lastErr == nil {
		lastErr = &domain.NotFoundError{Model: model}
	}
	return nil, &domain.DispatchError{Err: lastErr, Model: model, Attempted: attempted, TotalDuration: time.Since(start)}
}
