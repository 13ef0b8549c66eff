package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/searchktools/trellis/config"
	"github.com/searchktools/trellis/core"
	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
	"github.com/searchktools/trellis/core/middleware"
)

// App wires configuration, logging and the engine together
type App struct {
	cfg    *config.Config
	engine *core.Engine
}

// New creates an application instance with the standard middleware and
// the features enabled in cfg.
func New(cfg *config.Config) *App {
	if err := logger.Init(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
	}
	return NewWithEngine(cfg, core.NewEngine(cfg))
}

// NewWithEngine creates an application instance around a pre-configured engine
func NewWithEngine(cfg *config.Config, engine *core.Engine) *App {
	a := &App{
		cfg:    cfg,
		engine: engine,
	}
	a.installMiddleware()
	return a
}

// Engine returns the underlying engine for route registration
func (a *App) Engine() *core.Engine {
	return a.engine
}

func (a *App) installMiddleware() {
	e := a.engine
	e.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Metrics(e.Monitor()),
		middleware.CORS(a.cfg.CORS.AllowedOrigins),
	)
	if rl := a.cfg.RateLimit; rl.RPS > 0 {
		e.Use(middleware.RateLimiter(rl.RPS, rl.Burst, clientKey(rl.TrustForwarded)))
	}
}

// clientKey buckets rate limiting by peer host. With trustForwarded the
// first X-Forwarded-For entry, as written by the fronting proxy, wins.
func clientKey(trustForwarded bool) func(*http.Request) string {
	return func(req *http.Request) string {
		if trustForwarded {
			first, _, _ := strings.Cut(req.HeaderByName("x-forwarded-for"), ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		return req.RemoteHost()
	}
}

// registerFeatures adds the config-driven routes. It runs right before
// serving so application routes registered first take precedence.
func (a *App) registerFeatures() error {
	e := a.engine
	if dir := a.cfg.Static.PublicDir; dir != "" {
		if err := e.Public(dir); err != nil {
			return err
		}
	}
	if dir := a.cfg.Static.AssetsDir; dir != "" {
		if err := e.Assets(dir); err != nil {
			return err
		}
	}
	if a.cfg.Metrics.Enabled {
		if err := e.Router().Handle(http.GET, a.cfg.Metrics.Path, e.Monitor().Handler()); err != nil {
			return err
		}
	}
	return nil
}

// Serve runs the engine until ctx is canceled or a startup error occurs
func (a *App) Serve(ctx context.Context) error {
	defer logger.Sync()

	if err := a.registerFeatures(); err != nil {
		return err
	}

	logger.Info("app_starting",
		zap.String("name", a.cfg.Name),
		zap.String("env", a.cfg.Env),
		zap.String("addr", a.cfg.Addr()),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.engine.Serve(gctx)
		if errors.Is(err, core.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info("shutdown_requested", zap.Duration("grace", a.cfg.Server.ShutdownGrace.Duration()))
		}
		return nil
	})

	return g.Wait()
}

// Run starts the application and exits the process on startup failure
func (a *App) Run() {
	if err := a.Serve(context.Background()); err != nil {
		logger.Error("server_failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
