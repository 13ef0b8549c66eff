package app

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/trellis/config"
	"github.com/searchktools/trellis/core"
	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Setenv("TRELLIS_LOG_SINK", "file:"+filepath.Join(t.TempDir(), "app.log"))
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownGrace = config.Duration(time.Second)
	cfg.Views.Dir = ""
	return cfg
}

func get(t *testing.T, addr, path string, extra ...string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	req := "GET " + path + " HTTP/1.1\r\nHost: test\r\n" + strings.Join(extra, "") + "\r\n"
	_, err = conn.Write([]byte(req))
	require.NoError(t, err)
	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func TestAppServe(t *testing.T) {
	defer logger.Nop()

	public := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(public, "robots.txt"), []byte("User-agent: *"), 0o644))

	cfg := testConfig(t)
	cfg.Static.PublicDir = public
	cfg.Metrics.Enabled = true
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 3}

	a := New(cfg)
	a.Engine().GET("/ping", func(*http.Request) *http.Response { return http.Text("pong") })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Serve(ctx) }()

	select {
	case <-a.Engine().Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("app did not start")
	}
	if a.Engine().State() != core.StateListening {
		t.Fatalf("Serve failed: %v", <-errc)
	}
	addr := a.Engine().Addr().String()

	out := get(t, addr, "/ping")
	assert.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	assert.Contains(t, out, "Access-Control-Allow-Origin: *\r\n")
	assert.Contains(t, out, "X-Request-ID: ")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\npong"))

	assert.Contains(t, get(t, addr, "/robots.txt"), "User-agent: *")
	assert.Contains(t, get(t, addr, "/metrics"), "trellis_requests_total")

	// burst of 3 is spent, the same client is now limited even when it
	// claims another address
	assert.True(t, strings.HasPrefix(get(t, addr, "/ping"), "HTTP/1.1 429 Too Many Requests\r\n"))
	assert.True(t, strings.HasPrefix(get(t, addr, "/ping", "X-Forwarded-For: 10.0.0.9\r\n"), "HTTP/1.1 429 Too Many Requests\r\n"))

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, core.StateShutdown, a.Engine().State())
}

func TestAppServeStartupError(t *testing.T) {
	defer logger.Nop()

	cfg := testConfig(t)
	cfg.Static.PublicDir = filepath.Join(t.TempDir(), "missing")
	assert.Error(t, New(cfg).Serve(context.Background()))

	cfg = testConfig(t)
	cfg.Server.TLS = config.TLSConfig{CertFile: "nope.pem", KeyFile: "nope.pem"}
	assert.Error(t, New(cfg).Serve(context.Background()))
}

func TestClientKey(t *testing.T) {
	req := http.NewRequest(http.GET, "/")
	req.RemoteAddr = "192.0.2.7:51000"
	req.SetHeader("Host", "example.com")
	req.SetHeader("X-Forwarded-For", "10.1.1.1, 172.16.0.1")

	assert.Equal(t, "192.0.2.7", clientKey(false)(req))
	assert.Equal(t, "10.1.1.1", clientKey(true)(req))

	req.SetHeader("X-Forwarded-For", "")
	assert.Equal(t, "192.0.2.7", clientKey(true)(req))
}

func TestAppRateLimitIgnoresClientHeaders(t *testing.T) {
	defer logger.Nop()

	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	a := New(cfg)
	a.Engine().GET("/ping", func(*http.Request) *http.Response { return http.Text("pong") })
	h := a.Engine().Handler()

	request := func(remote, forwarded string) *http.Response {
		req := http.NewRequest(http.GET, "/ping")
		req.RemoteAddr = remote
		req.SetHeader("Host", "shared.test")
		if forwarded != "" {
			req.SetHeader("X-Forwarded-For", forwarded)
		}
		return h.Serve(req)
	}

	assert.Equal(t, http.StatusOK, request("198.51.100.1:1000", "").Status())
	served := 0
	for i := range 20 {
		if request("198.51.100.1:1000", "10.0.0."+strconv.Itoa(i)).Status() == http.StatusOK {
			served++
		}
	}
	assert.Zero(t, served, "rotating X-Forwarded-For must not reset the bucket")

	// same Host, different peer
	assert.Equal(t, http.StatusOK, request("198.51.100.2:1000", "").Status())
}

func TestAppRateLimitTrustForwarded(t *testing.T) {
	defer logger.Nop()

	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1, TrustForwarded: true}
	a := New(cfg)
	a.Engine().GET("/ping", func(*http.Request) *http.Response { return http.Text("pong") })
	h := a.Engine().Handler()

	request := func(forwarded string) http.StatusCode {
		req := http.NewRequest(http.GET, "/ping")
		req.RemoteAddr = "10.0.0.1:1000"
		req.SetHeader("X-Forwarded-For", forwarded)
		return h.Serve(req).Status()
	}

	assert.Equal(t, http.StatusOK, request("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, request("203.0.113.1, 10.0.0.1"))
	assert.Equal(t, http.StatusOK, request("203.0.113.2"))
}

func TestAppOptionsRoutes(t *testing.T) {
	defer logger.Nop()

	a := New(testConfig(t))
	e := a.Engine()
	e.OPTIONS("/things", func(*http.Request) *http.Response { return http.Text("custom options") })
	h := e.Handler()

	// a registered OPTIONS route answers, with CORS merged in
	resp := h.Serve(http.NewRequest(http.OPTIONS, "/things"))
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, "custom options", string(resp.Body()))
	assert.Equal(t, "*", resp.Header(http.HeaderAccessControlAllowOrigin))

	preflight := http.NewRequest(http.OPTIONS, "/things")
	preflight.SetHeader("Access-Control-Request-Method", "PUT")
	assert.Equal(t, "custom options", string(h.Serve(preflight).Body()))

	// no route: plain OPTIONS is a 404, a preflight gets 204
	assert.Equal(t, http.StatusNotFound, h.Serve(http.NewRequest(http.OPTIONS, "/nowhere")).Status())

	preflight = http.NewRequest(http.OPTIONS, "/nowhere")
	preflight.SetHeader("Access-Control-Request-Method", "PUT")
	resp = h.Serve(preflight)
	assert.Equal(t, http.StatusNoContent, resp.Status())
	assert.NotEmpty(t, resp.Header(http.HeaderAccessControlAllowMethods))
}
