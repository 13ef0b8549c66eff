package router

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
)

// ErrFrozen is returned when a route is added after the router started serving
var ErrFrozen = errors.New("router is frozen")

// methodTable holds the routes of one method in registration order
type methodTable struct {
	routes []*Route

	// Exact path -> first registered exact route
	exact map[http.Uri]*Route

	// Parameterized routes in registration order
	params []*Route
}

// Router dispatches requests to routes. Routes are added at startup; once
// Freeze is called the router is read-only and safe for concurrent use.
type Router struct {
	tables map[http.Method]*methodTable
	frozen atomic.Bool
}

// New creates an empty router
func New() *Router {
	return &Router{
		tables: make(map[http.Method]*methodTable),
	}
}

// Add registers a compiled route
func (r *Router) Add(route *Route) error {
	if r.frozen.Load() {
		return fmt.Errorf("%w: cannot add %s", ErrFrozen, route)
	}

	t := r.tables[route.method]
	if t == nil {
		t = &methodTable{exact: make(map[http.Uri]*Route)}
		r.tables[route.method] = t
	}
	t.routes = append(t.routes, route)

	if route.IsParameterized() {
		t.params = append(t.params, route)
		return nil
	}

	if first, ok := t.exact[route.pattern]; ok {
		logger.Warn("route_shadowed",
			zap.String("route", route.String()),
			zap.String("kept", first.String()),
		)
		return nil
	}
	t.exact[route.pattern] = route
	return nil
}

// Handle compiles pattern and registers it
func (r *Router) Handle(method http.Method, pattern string, h http.Handler) error {
	route, err := NewRoute(method, pattern, h)
	if err != nil {
		return err
	}
	return r.Add(route)
}

// mustHandle panics on registration errors. Bad patterns are a startup bug.
func (r *Router) mustHandle(method http.Method, pattern string, h http.HandlerFunc) {
	if err := r.Handle(method, pattern, h); err != nil {
		panic(err)
	}
}

// GET registers a GET route
func (r *Router) GET(pattern string, h http.HandlerFunc) { r.mustHandle(http.GET, pattern, h) }

// POST registers a POST route
func (r *Router) POST(pattern string, h http.HandlerFunc) { r.mustHandle(http.POST, pattern, h) }

// PUT registers a PUT route
func (r *Router) PUT(pattern string, h http.HandlerFunc) { r.mustHandle(http.PUT, pattern, h) }

// DELETE registers a DELETE route
func (r *Router) DELETE(pattern string, h http.HandlerFunc) { r.mustHandle(http.DELETE, pattern, h) }

// PATCH registers a PATCH route
func (r *Router) PATCH(pattern string, h http.HandlerFunc) { r.mustHandle(http.PATCH, pattern, h) }

// HEAD registers a HEAD route
func (r *Router) HEAD(pattern string, h http.HandlerFunc) { r.mustHandle(http.HEAD, pattern, h) }

// OPTIONS registers an OPTIONS route
func (r *Router) OPTIONS(pattern string, h http.HandlerFunc) { r.mustHandle(http.OPTIONS, pattern, h) }

// Freeze makes the router read-only
func (r *Router) Freeze() { r.frozen.Store(true) }

// Frozen reports whether Freeze has been called
func (r *Router) Frozen() bool { return r.frozen.Load() }

// Routes returns the routes of method in registration order
func (r *Router) Routes(method http.Method) []*Route {
	t := r.tables[method]
	if t == nil {
		return nil
	}
	return append([]*Route(nil), t.routes...)
}

// Len returns the number of registered routes
func (r *Router) Len() int {
	n := 0
	for _, t := range r.tables {
		n += len(t.routes)
	}
	return n
}

// Find returns the route matching method and uri with its extracted
// parameters. Exact routes win over parameterized ones; among
// parameterized routes the first registered match wins.
func (r *Router) Find(method http.Method, uri http.Uri) (*Route, map[string]string) {
	t := r.tables[method]
	if t == nil {
		return nil, nil
	}

	if route, ok := t.exact[uri]; ok {
		return route, nil
	}

	for _, route := range t.params {
		if params, ok := route.Match(uri); ok {
			return route, params
		}
	}

	return nil, nil
}

// Serve dispatches req to its route, or answers 404. Router implements
// http.Handler so middleware can wrap it.
func (r *Router) Serve(req *http.Request) *http.Response {
	route, params := r.Find(req.Method, req.Uri)
	if route == nil {
		return http.NotFound(req.Method, req.Uri)
	}

	if params != nil {
		req = req.WithParams(params)
	}

	resp := route.handler.Serve(req)
	if resp == nil {
		logger.Error("handler_returned_nil", zap.String("route", route.String()))
		return http.InternalServerError()
	}
	return resp
}
