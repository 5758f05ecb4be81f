// Package router holds the HTTP route table: the list of paths this proxy
// answers, wired onto a *http.ServeMux at startup. This is distinct from
// the backend router registry (internal/adapter/registry), which resolves
// a backend driver for a given endpoint rather than an inbound path.
package router

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/pterm/pterm"
	"github.com/thushan/ollabridge/internal/logger"
)

// RouteInfo describes one registered endpoint, kept for the startup routes
// table and for WireUp's mux.HandleFunc registration.
type RouteInfo struct {
	Handler     http.HandlerFunc
	Description string
	Method      string
	Order       int
}

// RouteRegistry collects routes before the server starts, so registration
// order (and hence the printed table) is independent of map iteration.
type RouteRegistry struct {
	routes   map[string]RouteInfo
	logger   logger.StyledLogger
	orderSeq int
}

func NewRouteRegistry(log logger.StyledLogger) *RouteRegistry {
	return &RouteRegistry{
		routes: make(map[string]RouteInfo),
		logger: log,
	}
}

// Register adds a GET route.
func (r *RouteRegistry) Register(route string, handler http.HandlerFunc, description string) {
	r.RegisterWithMethod(route, handler, description, http.MethodGet)
}

// RegisterWithMethod adds a route for a specific HTTP method. An empty
// method registers a bare path pattern that Go 1.24's ServeMux matches for
// any method not claimed by a more specific method+path pattern elsewhere
// — used for the /api/ passthrough catch-all.
func (r *RouteRegistry) RegisterWithMethod(route string, handler http.HandlerFunc, description, method string) {
	key := method + " " + route
	r.routes[key] = RouteInfo{
		Handler:     handler,
		Description: description,
		Method:      method,
		Order:       r.orderSeq,
	}
	r.orderSeq++
}

// RegisterAny adds a route with no method prefix, matched regardless of
// HTTP method.
func (r *RouteRegistry) RegisterAny(route string, handler http.HandlerFunc, description string) {
	r.routes[route] = RouteInfo{
		Handler:     handler,
		Description: description,
		Method:      "ANY",
		Order:       r.orderSeq,
	}
	r.orderSeq++
}

// WireUp registers every collected route on mux and prints the routes
// table, using the pattern each route was registered with (either
// "METHOD /path" or a bare "/path" for RegisterAny).
func (r *RouteRegistry) WireUp(mux *http.ServeMux) {
	for pattern, info := range r.routes {
		mux.HandleFunc(pattern, info.Handler)
	}
	r.logRoutesTable()
}

func (r *RouteRegistry) logRoutesTable() {
	if len(r.routes) == 0 {
		return
	}

	type routeEntry struct {
		path   string
		method string
		desc   string
		order  int
	}

	entries := make([]routeEntry, 0, len(r.routes))
	for route, info := range r.routes {
		entries = append(entries, routeEntry{
			path:   route,
			method: info.Method,
			desc:   info.Description,
			order:  info.Order,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})

	tableData := [][]string{
		{"ROUTE", "METHOD", "DESCRIPTION"},
	}
	for _, entry := range entries {
		tableData = append(tableData, []string{entry.path, entry.method, entry.desc})
	}

	r.logger.InfoWithCount("Registered web routes", len(entries))
	tableString, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	fmt.Print(tableString)
}

// GetRoutes exposes the collected routes, mainly for tests.
func (r *RouteRegistry) GetRoutes() map[string]RouteInfo {
	return r.routes
}
