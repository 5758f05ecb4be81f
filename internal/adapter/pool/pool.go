// Package pool implements the shared HTTP client pool (spec §4.1), grounded
// on original_source/client_pool.py and on the transport tuning in
// internal/adapter/factory/client.go from the teacher repo.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/thushan/ollabridge/internal/core/constants"
)

const (
	// healthCheckThreshold is how long a pooled client may sit idle before
	// a HEAD probe is required to keep using it, mirroring
	// HEALTH_CHECK_THRESHOLD in client_pool.py.
	healthCheckThreshold = 30 * time.Second

	maxIdleConns        = 200
	maxIdleConnsPerHost = 100
	idleConnTimeout     = 300 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// acceptEncodingTransport stamps Accept-Encoding onto every outbound
// request the way client_pool.py's ClientPool sets it on the httpx.Client's
// default headers, since http.Transport has no notion of default headers
// of its own.
type acceptEncodingTransport struct {
	next http.RoundTripper
}

func (t acceptEncodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(constants.HeaderAcceptEncoding) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(constants.HeaderAcceptEncoding, constants.AcceptEncodingValues)
	}
	return t.next.RoundTrip(req)
}

type key struct {
	baseURL     string
	apiKey      string
	compression bool
}

func (k key) String() string {
	return fmt.Sprintf("%s|%s|%v", k.baseURL, k.apiKey, k.compression)
}

type pooledClient struct {
	client    *http.Client
	transport *http.Transport
	refCount  int
	lastUsed  time.Time
}

// Pool is the shared, reference-counted *http.Client cache. One entry
// exists per distinct (base_url, api_key, compression) triple; concurrent
// callers asking for the same triple share a single client and its
// connection pool, the way original_source/client_pool.py's ClientPool
// singleton does.
type Pool struct {
	mu            sync.Mutex
	clients       map[string]*pooledClient
	healthTimeout time.Duration
	logger        *slog.Logger
}

// New builds a Pool. healthTimeout bounds the idle-client HEAD probe
// described in spec §4.1.
func New(healthTimeout time.Duration, logger *slog.Logger) *Pool {
	if healthTimeout <= 0 {
		healthTimeout = 2 * time.Second
	}
	return &Pool{
		clients:       make(map[string]*pooledClient),
		healthTimeout: healthTimeout,
		logger:        logger,
	}
}

// Acquire returns a client for the given endpoint, creating one if needed
// and reusing an existing one if it passes its idle health check.
func (p *Pool) Acquire(ctx context.Context, baseURL, apiKey string, timeoutMs int64, compression bool) (*http.Client, error) {
	k := key{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, compression: compression}
	ks := k.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.clients[ks]; ok {
		if time.Since(entry.lastUsed) > healthCheckThreshold {
			if !p.probe(ctx, k.baseURL) {
				p.logger.Warn("pooled client failed idle health check, recreating", "base_url", k.baseURL)
				entry.transport.CloseIdleConnections()
				delete(p.clients, ks)
			}
		}
	}

	if entry, ok := p.clients[ks]; ok {
		entry.refCount++
		entry.lastUsed = time.Now()
		entry.client.Timeout = time.Duration(timeoutMs) * time.Millisecond
		return entry.client, nil
	}

	transport := &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		DisableCompression:  !compression,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		p.logger.Debug("http/2 not available for transport, continuing with http/1.1", "error", err)
	}

	var roundTripper http.RoundTripper = transport
	if compression {
		roundTripper = acceptEncodingTransport{next: transport}
	}

	client := &http.Client{
		Transport: roundTripper,
		Timeout:   time.Duration(timeoutMs) * time.Millisecond,
	}

	p.clients[ks] = &pooledClient{
		client:    client,
		transport: transport,
		refCount:  1,
		lastUsed:  time.Now(),
	}
	return client, nil
}

// Release drops one reference to the client for the given endpoint,
// closing its connections immediately once the last reference is gone
// (client_pool.py's release_client does the same: no lingering grace
// period, since the caches upstream of this pool already bound how often
// acquire/release churns).
func (p *Pool) Release(baseURL, apiKey string, compression bool) {
	k := key{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, compression: compression}
	ks := k.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.clients[ks]
	if !ok {
		return
	}
	entry.refCount--
	if entry.refCount <= 0 {
		entry.transport.CloseIdleConnections()
		delete(p.clients, ks)
	}
}

// CloseAll tears down every pooled client, for use at shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ks, entry := range p.clients {
		entry.transport.CloseIdleConnections()
		delete(p.clients, ks)
	}
}

// probe issues a HEAD request against baseURL to decide whether an idle
// client is still worth reusing.
func (p *Pool) probe(ctx context.Context, baseURL string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, baseURL, nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return true
}

// Size reports the number of distinct pooled clients, for status reporting.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
