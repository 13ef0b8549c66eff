/*
Package trellis is a small web application framework that speaks HTTP/1.1
directly over TCP.

Each accepted connection carries exactly one request: the server reads the
request, routes it, writes the response and closes the connection. Routes
are exact paths or paths with a single <name> placeholder filling one
segment, registered per method before the server starts.

Features

  - Router with exact and single-parameter routes, first match wins
  - Response flavors: text, JSON, HTML views, CSS, JavaScript, files,
    redirects, protobuf and WebSocket upgrades
  - Static directories served from memory
  - Middleware: recovery, request ids, logging, CORS, rate limiting, metrics
  - Optional TLS with a certificate and key
  - Graceful shutdown with a bounded grace period
  - Prometheus metrics and zap logging

Quick Start

Basic usage example:

	package main

	import (
	    "github.com/searchktools/trellis/app"
	    "github.com/searchktools/trellis/config"
	    "github.com/searchktools/trellis/core/http"
	)

	func main() {
	    cfg := config.New()
	    application := app.New(cfg)

	    engine := application.Engine()
	    engine.GET("/hello", func(req *http.Request) *http.Response {
	        return http.Text("Hello, World!")
	    })

	    engine.GET("/users/<id>", func(req *http.Request) *http.Response {
	        return http.JSON(map[string]string{"id": req.Param("id")})
	    })

	    application.Run()
	}

Modules

  - app: Application lifecycle and signal handling
  - config: Configuration from YAML, .env, environment and flags
  - core: Engine, listener and per-connection pipeline
  - core/http: Request parsing and response construction
  - core/router: Route table
  - core/middleware: Middleware pipeline
  - core/static: Static file routes
  - core/view: html/template renderer
  - core/websocket: WebSocket upgrade and frame codec
  - core/secure: TLS acceptor
  - core/pools: Read buffer pool
  - core/observability: Prometheus metrics
  - core/logger: Process-wide zap logger
*/
package trellis
