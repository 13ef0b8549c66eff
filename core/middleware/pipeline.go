package middleware

import (
	"fmt"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
	"github.com/searchktools/trellis/core/observability"
)

// Middleware wraps a handler. It may answer on its own without calling next.
type Middleware func(next http.Handler) http.Handler

// Pipeline is an ordered list of middleware
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline() *Pipeline {
	return &Pipeline{
		middlewares: make([]Middleware, 0, 8),
	}
}

// Use adds a middleware to the pipeline
func (p *Pipeline) Use(mw ...Middleware) *Pipeline {
	p.middlewares = append(p.middlewares, mw...)
	return p
}

// Len returns the number of middlewares
func (p *Pipeline) Len() int { return len(p.middlewares) }

// Then wraps final so the first added middleware runs first
func (p *Pipeline) Then(final http.Handler) http.Handler {
	h := final
	for _, mw := range slices.Backward(p.middlewares) {
		h = mw(h)
	}
	return h
}

// Recovery turns a panicking handler into a 500
func Recovery() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) (resp *http.Response) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic_recovered",
						zap.String("method", req.Method.String()),
						zap.String("path", req.Path()),
						zap.Any("panic", err),
						zap.ByteString("stack", debug.Stack()),
					)
					resp = http.InternalServerError()
				}
			}()
			return next.Serve(req)
		})
	}
}

// Logger logs one line per request
func Logger() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			start := time.Now()
			resp := next.Serve(req)
			logger.Info("request",
				zap.String("method", req.Method.String()),
				zap.String("path", req.Path()),
				zap.Int("status", resp.Status().Code()),
				zap.Int("bytes", len(resp.Body())),
				zap.Duration("took", time.Since(start)),
			)
			return resp
		})
	}
}

// Metrics records request counts and latency on m
func Metrics(m *observability.Monitor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			start := time.Now()
			resp := next.Serve(req)
			m.RecordRequest(req.Method, resp.Status(), time.Since(start))
			return resp
		})
	}
}

var (
	corsMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
)

// CORS sets the allowed origin on every response. An empty list or "*"
// allows any origin; otherwise the request Origin is echoed when listed
// and responses to other origins carry no grant. A preflight (OPTIONS with
// Access-Control-Request-Method) that no route answers gets a 204; every
// other request goes through to the router.
func CORS(allowedOrigins []string) Middleware {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			origin := "*"
			if !allowAll {
				origin = ""
				if o := req.HeaderByName("origin"); o != "" {
					if _, ok := allowed[strings.TrimRight(o, "/")]; ok {
						origin = o
					}
				}
			}

			resp := next.Serve(req)
			if isPreflight(req) && resp.Status() == http.StatusNotFound {
				resp = http.NewResponse().SetStatus(http.StatusNoContent).SetBody(nil)
				resp.SetHeader(http.HeaderAccessControlAllowMethods, corsMethods)
				resp.SetHeader(http.HeaderAccessControlAllowHeaders, corsHeaders)
			}

			if resp.Status() == http.StatusSwitchingProtocols {
				return resp
			}
			if origin == "" {
				return resp.DelHeader(http.HeaderAccessControlAllowOrigin)
			}
			if !allowAll {
				vary := resp.Header(http.HeaderVary)
				if vary != "" {
					vary += ", "
				}
				resp.SetHeader(http.HeaderVary, vary+"Origin")
			}
			return resp.SetCORS(origin).SetHeader(http.HeaderAccessControlAllowOrigin, origin)
		})
	}
}

func isPreflight(req *http.Request) bool {
	return req.Method == http.OPTIONS && req.HeaderByName("access-control-request-method") != ""
}

// limiterIdle is the shortest time a bucket is kept after its last use
const limiterIdle = 3 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per key. Buckets are dropped once they
// have been idle long enough to refill, so eviction never grants a client
// more than a full burst.
type limiterSet struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	entries   map[string]*limiterEntry
}

func newLimiterSet(rps float64, burst int) *limiterSet {
	idle := limiterIdle
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &limiterSet{
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		entries: make(map[string]*limiterEntry),
	}
}

func (s *limiterSet) allow(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= s.idle {
		for k, e := range s.entries {
			if now.Sub(e.lastSeen) >= s.idle {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}

	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RemoteHost keys rate limiting by the peer address of the connection
func RemoteHost(req *http.Request) string { return req.RemoteHost() }

// RateLimiter limits requests per client key with a token bucket. key
// picks the bucket; nil means RemoteHost. Keys derived from request
// headers are chosen by the client and only safe behind a trusted proxy.
func RateLimiter(rps float64, burst int, key func(*http.Request) string) Middleware {
	if key == nil {
		key = RemoteHost
	}
	buckets := newLimiterSet(rps, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			if !buckets.allow(key(req)) {
				return http.TooManyRequests()
			}
			return next.Serve(req)
		})
	}
}

// RequestID tags each response with a process-unique id. An incoming
// X-Request-ID is kept.
func RequestID() Middleware {
	var counter atomic.Uint64
	prefix := strconv.FormatInt(time.Now().Unix(), 36)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(req *http.Request) *http.Response {
			id := req.Header(http.HeaderXRequestID)
			if id == "" {
				id = fmt.Sprintf("%s-%d", prefix, counter.Add(1))
			}
			return next.Serve(req).SetHeader(http.HeaderXRequestID, id)
		})
	}
}
