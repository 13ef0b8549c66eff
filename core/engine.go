package core

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/searchktools/trellis/config"
	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/middleware"
	"github.com/searchktools/trellis/core/observability"
	"github.com/searchktools/trellis/core/pools"
	"github.com/searchktools/trellis/core/router"
	"github.com/searchktools/trellis/core/secure"
	"github.com/searchktools/trellis/core/static"
	"github.com/searchktools/trellis/core/view"
	"github.com/searchktools/trellis/core/websocket"
)

// Engine owns the route table, the middleware chain and the listener. Routes
// and middleware are registered before Serve; the router is frozen when
// serving starts.
type Engine struct {
	cfg      *config.Config
	router   *router.Router
	pipeline *middleware.Pipeline
	renderer http.Renderer
	upgrader secure.Upgrader
	monitor  *observability.Monitor
	bytePool *pools.BytePool

	state   atomic.Int32
	serving atomic.Bool
	ready   chan struct{}

	mu    sync.Mutex
	addr  net.Addr
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// NewEngine creates an engine for cfg. A nil cfg means config.Default().
func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Engine{
		cfg:      cfg,
		router:   router.New(),
		pipeline: middleware.NewPipeline(),
		monitor:  observability.NewMonitor(),
		bytePool: pools.NewBytePool(),
		ready:    make(chan struct{}),
		conns:    make(map[net.Conn]struct{}),
	}
	if cfg.Views.Dir != "" {
		e.renderer = view.New(cfg.Views.Dir, cfg.Views.Ext)
	}
	return e
}

// Config returns the engine configuration
func (e *Engine) Config() *config.Config { return e.cfg }

// Router returns the route table
func (e *Engine) Router() *router.Router { return e.router }

// Monitor returns the metrics collectors
func (e *Engine) Monitor() *observability.Monitor { return e.monitor }

// GET registers a GET route. Invalid patterns panic.
func (e *Engine) GET(pattern string, handler http.HandlerFunc) { e.router.GET(pattern, handler) }

// POST registers a POST route
func (e *Engine) POST(pattern string, handler http.HandlerFunc) { e.router.POST(pattern, handler) }

// PUT registers a PUT route
func (e *Engine) PUT(pattern string, handler http.HandlerFunc) { e.router.PUT(pattern, handler) }

// DELETE registers a DELETE route
func (e *Engine) DELETE(pattern string, handler http.HandlerFunc) { e.router.DELETE(pattern, handler) }

// PATCH registers a PATCH route
func (e *Engine) PATCH(pattern string, handler http.HandlerFunc) { e.router.PATCH(pattern, handler) }

// HEAD registers a HEAD route
func (e *Engine) HEAD(pattern string, handler http.HandlerFunc) { e.router.HEAD(pattern, handler) }

// OPTIONS registers an OPTIONS route
func (e *Engine) OPTIONS(pattern string, handler http.HandlerFunc) { e.router.OPTIONS(pattern, handler) }

// AddRoute registers a prebuilt route
func (e *Engine) AddRoute(route *router.Route) error { return e.router.Add(route) }

// Use appends middleware. The first added runs outermost.
func (e *Engine) Use(mw ...middleware.Middleware) { e.pipeline.Use(mw...) }

// Public serves every file under dir from the site root
func (e *Engine) Public(dir string) error {
	_, err := static.Register(e.router, dir, "/")
	return err
}

// Assets serves every file under dir below /assets
func (e *Engine) Assets(dir string) error {
	_, err := static.Register(e.router, dir, "/assets")
	return err
}

// WebSocket registers a GET route that upgrades to a WebSocket session
func (e *Engine) WebSocket(pattern string, fn websocket.SessionFunc, protocols ...string) {
	e.router.GET(pattern, websocket.Handler(fn, protocols...))
}

// SetRenderer replaces the template renderer used by View and HTML
func (e *Engine) SetRenderer(r http.Renderer) { e.renderer = r }

// Renderer returns the template renderer, nil when views are disabled
func (e *Engine) Renderer() http.Renderer { return e.renderer }

// View renders a template through the engine renderer
func (e *Engine) View(name string, data any) *http.Response {
	return http.View(e.renderer, name, data)
}

// HTML renders a template without data
func (e *Engine) HTML(name string) *http.Response {
	return http.HTML(e.renderer, name)
}

// SetUpgrader installs a connection upgrader, which switches the server to
// TLS mode regardless of configuration.
func (e *Engine) SetUpgrader(u secure.Upgrader) { e.upgrader = u }

// State returns the current lifecycle state
func (e *Engine) State() State { return State(e.state.Load()) }

// Ready is closed when Serve leaves the Starting state. After a failed
// bind State reports StateShutdown and Addr stays nil.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

// Addr returns the bound address, nil before Listening
func (e *Engine) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addr
}

// Handler composes the middleware chain around the router
func (e *Engine) Handler() http.Handler {
	return e.pipeline.Then(e.router)
}
