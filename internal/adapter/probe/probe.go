// Package probe implements the local-daemon liveness check (spec §4.9): a
// cached boolean, refreshed by a short-timeout GET against the local
// Ollama daemon's /api/tags, that C5/C7 consult to decide whether the
// "local" virtual router should resolve to the real ollama driver or fall
// back to the mock driver.
package probe

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/logger"
	"github.com/thushan/ollabridge/pkg/eventbus"
)

// Event is published on every local-daemon liveness transition, so anything
// beyond the inline ProbeUp/ProbeDown log lines (a status page, a metrics
// exporter) can subscribe without the probe knowing about its consumers.
type Event struct {
	Name   string
	Up     bool
	Reason string
}

// Probe implements ports.LocalProbe.
type Probe struct {
	client       *http.Client
	baseURL      string
	ttl          time.Duration
	timeout      time.Duration
	simulateDown bool
	styled       logger.StyledLogger
	bus          *eventbus.EventBus[Event]

	mu        sync.Mutex
	lastCheck time.Time
	lastUp    bool
	checked   bool
}

func New(baseURL string, timeout, ttl time.Duration, simulateDown bool, styled logger.StyledLogger) *Probe {
	return &Probe{
		client:       &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		ttl:          ttl,
		timeout:      timeout,
		simulateDown: simulateDown,
		styled:       styled,
		bus:          eventbus.New[Event](),
	}
}

// Subscribe returns a channel of liveness-transition events and a cleanup
// function to release it; ctx cancellation also releases the subscription.
func (p *Probe) Subscribe(ctx context.Context) (<-chan Event, func()) {
	return p.bus.Subscribe(ctx)
}

// IsUp returns the cached liveness verdict, refreshing it with a fresh GET
// when the TTL has elapsed. Any error, including a non-2xx status, is
// treated as "down". simulateDown short-circuits to "down" unconditionally
// without making a network call, for exercising failover in development.
func (p *Probe) IsUp(ctx context.Context) bool {
	if p.simulateDown {
		return false
	}

	p.mu.Lock()
	if p.checked && time.Since(p.lastCheck) < p.ttl {
		up := p.lastUp
		p.mu.Unlock()
		return up
	}
	p.mu.Unlock()

	up := p.probe(ctx)

	p.mu.Lock()
	wasUp := p.lastUp
	p.lastUp = up
	p.lastCheck = time.Now()
	p.checked = true
	p.mu.Unlock()

	if up != wasUp {
		reason := ""
		if p.styled != nil {
			if up {
				p.styled.ProbeUp("local")
			} else {
				reason = "probe request failed or returned non-2xx"
				p.styled.ProbeDown("local", reason)
			}
		}
		p.bus.PublishAsync(Event{Name: "local", Up: up, Reason: reason})
	}

	return up
}

func (p *Probe) probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+constants.PathAPITags, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
