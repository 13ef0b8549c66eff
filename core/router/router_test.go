package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/trellis/core/http"
)

func text(s string) http.HandlerFunc {
	return func(*http.Request) *http.Response { return http.Text(s) }
}

func serve(r *Router, method http.Method, uri string) *http.Response {
	return r.Serve(http.NewRequest(method, http.Uri(uri)))
}

// TestRouterBasic tests basic exact routing
func TestRouterBasic(t *testing.T) {
	router := New()
	router.GET("/", text("root"))
	router.GET("/hello", text("hello"))
	router.GET("/hello/world", text("world"))

	tests := []struct {
		path        string
		shouldMatch bool
	}{
		{"/", true},
		{"/hello", true},
		{"/hello/world", true},
		{"/hello/", false},
		{"/notfound", false},
	}

	for _, tt := range tests {
		route, _ := router.Find(http.GET, http.Uri(tt.path))
		matched := route != nil
		if matched != tt.shouldMatch {
			t.Errorf("Path %s: expected match=%v, got match=%v", tt.path, tt.shouldMatch, matched)
		}
	}
}

// TestRouterPriority tests route priority (exact > param)
func TestRouterPriority(t *testing.T) {
	router := New()
	router.GET("/user/<id>", text("param"))
	router.GET("/user/admin", text("exact"))

	assert.Equal(t, "exact", string(serve(router, http.GET, "/user/admin").Body()))
	assert.Equal(t, "param", string(serve(router, http.GET, "/user/123").Body()))
}

func TestParameterExtraction(t *testing.T) {
	router := New()

	var got *http.Request
	router.GET("/users/<id>", func(req *http.Request) *http.Response {
		got = req
		return http.Text("user " + req.Param("id"))
	})

	resp := serve(router, http.GET, "/users/42")
	require.NotNil(t, got)
	assert.Equal(t, "42", got.Param("id"))
	assert.Equal(t, "user 42", string(resp.Body()))
	assert.Equal(t, http.StatusOK, resp.Status())
}

func TestParameterWithSuffix(t *testing.T) {
	router := New()
	router.GET("/users/<id>/posts", func(req *http.Request) *http.Response {
		return http.Text(req.Param("id"))
	})

	assert.Equal(t, "7", string(serve(router, http.GET, "/users/7/posts").Body()))
	assert.Equal(t, http.StatusNotFound, serve(router, http.GET, "/users/7").Status())
	assert.Equal(t, http.StatusNotFound, serve(router, http.GET, "/users/7/comments").Status())
	assert.Equal(t, http.StatusNotFound, serve(router, http.GET, "/users//posts").Status())
}

func TestFirstMatchWinsWithoutOverwrite(t *testing.T) {
	router := New()

	calls := 0
	router.GET("/items/<id>", func(req *http.Request) *http.Response {
		calls++
		return http.Text("first " + req.Param("id"))
	})
	router.GET("/items/<name>", func(req *http.Request) *http.Response {
		calls++
		return http.Text("second")
	})
	// Registered later and never matching /items/..., must not replace the response
	router.GET("/other/<x>", text("other"))

	resp := serve(router, http.GET, "/items/9")
	assert.Equal(t, "first 9", string(resp.Body()))
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.Equal(t, 1, calls)
}

func TestNotFound(t *testing.T) {
	router := New()
	router.GET("/only", text("x"))

	tests := []struct {
		name   string
		method http.Method
		uri    string
	}{
		{"method without routes", http.POST, "/only"},
		{"method without routes any path", http.DELETE, "/anything/at/all"},
		{"no exact and no params", http.GET, "/missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(router, tt.method, tt.uri)
			assert.Equal(t, http.StatusNotFound, resp.Status())
			assert.Equal(t, "text/html; charset=utf-8", resp.Header(http.HeaderContentType))
			assert.Contains(t, string(resp.Body()), tt.method.String()+" "+tt.uri)
		})
	}

	router.GET("/files/<name>", text("file"))
	assert.Equal(t, http.StatusNotFound, serve(router, http.GET, "/elsewhere/a").Status())
}

func TestEmptyRouterReturns404ForEveryMethod(t *testing.T) {
	router := New()
	for _, m := range http.Methods {
		assert.Equal(t, http.StatusNotFound, serve(router, m, "/").Status(), m.String())
	}
}

func TestDuplicateExactRouteFirstWins(t *testing.T) {
	router := New()
	router.GET("/dup", text("first"))
	router.GET("/dup", text("second"))

	assert.Equal(t, "first", string(serve(router, http.GET, "/dup").Body()))
	assert.Len(t, router.Routes(http.GET), 2)
}

func TestMethodsAreSeparate(t *testing.T) {
	router := New()
	router.GET("/thing", text("get"))
	router.POST("/thing", text("post"))
	router.PUT("/thing", text("put"))
	router.DELETE("/thing", text("delete"))
	router.PATCH("/thing", text("patch"))
	router.HEAD("/thing", text("head"))
	router.OPTIONS("/thing", text("options"))

	for _, m := range []http.Method{http.GET, http.POST, http.PUT, http.DELETE, http.PATCH, http.HEAD, http.OPTIONS} {
		assert.Equal(t, m.String(), strings.ToUpper(string(serve(router, m, "/thing").Body())))
	}
	assert.Equal(t, 7, router.Len())
}

func TestFreeze(t *testing.T) {
	router := New()
	router.GET("/", text("root"))
	router.Freeze()

	err := router.Handle(http.GET, "/late", text("late"))
	assert.ErrorIs(t, err, ErrFrozen)
	assert.True(t, router.Frozen())
	assert.Panics(t, func() { router.GET("/later", text("x")) })
}

func TestInvalidPatternPanicsOnRegistration(t *testing.T) {
	router := New()
	assert.Panics(t, func() { router.GET("/a/<x>/<y>", text("x")) })
	assert.Panics(t, func() { router.GET("no-slash", text("x")) })
}

func TestNilResponseBecomes500(t *testing.T) {
	router := New()
	router.GET("/nil", func(*http.Request) *http.Response { return nil })

	assert.Equal(t, http.StatusInternalServerError, serve(router, http.GET, "/nil").Status())
}

func TestQueryDoesNotAffectMatching(t *testing.T) {
	router := New()
	router.GET("/search", func(req *http.Request) *http.Response {
		return http.Text(req.QueryParam("q"))
	})

	req, err := http.Parse([]byte("GET /search?q=go HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)
	assert.Equal(t, "go", string(router.Serve(req).Body()))
}

func BenchmarkRouterStatic(b *testing.B) {
	router := New()
	router.GET("/", text("root"))
	router.GET("/api/users", text("users"))
	router.GET("/api/posts", text("posts"))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.Find(http.GET, "/api/users")
	}
}

func BenchmarkRouterParam(b *testing.B) {
	router := New()
	router.GET("/api/posts/<slug>", text("post"))
	router.GET("/api/users/<id>", text("user"))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.Find(http.GET, "/api/users/123")
	}
}
