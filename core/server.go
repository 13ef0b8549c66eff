package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/searchktools/trellis/core/logger"
	"github.com/searchktools/trellis/core/secure"
)

// Serve binds the configured address and serves until ctx is canceled.
// Routes can no longer be added once Serve is called. On cancellation the
// listener is closed, in-flight connections get the configured grace period
// and whatever remains is closed. The returned error is ErrServerClosed
// after a clean shutdown. Ready is closed whether binding succeeds or
// fails; State tells the two apart.
func (e *Engine) Serve(ctx context.Context) error {
	if !e.serving.CompareAndSwap(false, true) {
		return ErrAlreadyServing
	}
	if e.State() == StateShutdown {
		return ErrServerClosed
	}

	e.router.Freeze()
	handler := e.Handler()

	if e.upgrader == nil && e.cfg.Server.TLS.Enabled() {
		acceptor, err := secure.NewAcceptor(e.cfg.Server.TLS.CertFile, e.cfg.Server.TLS.KeyFile)
		if err != nil {
			e.state.Store(int32(StateShutdown))
			close(e.ready)
			return err
		}
		e.upgrader = acceptor
	}

	ln, err := e.listen(ctx)
	if err != nil {
		e.state.Store(int32(StateShutdown))
		close(e.ready)
		return err
	}
	if limit := e.cfg.Server.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}

	e.mu.Lock()
	e.addr = ln.Addr()
	e.mu.Unlock()
	e.state.Store(int32(StateListening))
	close(e.ready)

	logger.Info("server_listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", e.upgrader != nil),
		zap.Int("routes", e.router.Len()),
		zap.Int("max_connections", e.cfg.Server.MaxConnections),
	)

	stop := context.AfterFunc(ctx, func() {
		e.state.Store(int32(StateShutdown))
		ln.Close()
	})
	defer stop()

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if e.State() == StateShutdown {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// Backoff on temporary accept errors such as EMFILE
				if tempDelay == 0 {
					tempDelay = 5 * time.Millisecond
				} else {
					tempDelay = min(2*tempDelay, time.Second)
				}
				logger.Warn("accept_failed", zap.Error(err), zap.Duration("retry_in", tempDelay))
				time.Sleep(tempDelay)
				continue
			}
			e.state.Store(int32(StateShutdown))
			ln.Close()
			e.drain()
			return fmt.Errorf("accept: %w", err)
		}
		tempDelay = 0

		e.track(conn)
		e.wg.Add(1)
		go e.serveConn(conn, handler)
	}

	e.drain()
	logger.Info("server_stopped", zap.String("addr", e.addr.String()))
	return ErrServerClosed
}

// listen binds the configured address, falling back once to the next port
func (e *Engine) listen(ctx context.Context) (net.Listener, error) {
	reusePort := e.cfg.Server.ReusePort
	if reusePort && !reusePortSupported {
		logger.Warn("reuse_port_unsupported")
		reusePort = false
	}
	lc := net.ListenConfig{Control: listenControl(reusePort)}

	addr := e.cfg.Addr()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err == nil {
		return ln, nil
	}

	port := e.cfg.Server.Port
	if port == 0 || port >= 65535 {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}

	next := net.JoinHostPort(e.cfg.Server.Address, strconv.Itoa(port+1))
	logger.Warn("bind_failed_retrying", zap.String("addr", addr), zap.String("next", next), zap.Error(err))

	ln, err = lc.Listen(ctx, "tcp", next)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", next, err)
	}
	return ln, nil
}

func (e *Engine) track(conn net.Conn) {
	e.mu.Lock()
	e.conns[conn] = struct{}{}
	e.mu.Unlock()
}

func (e *Engine) untrack(conn net.Conn) {
	e.mu.Lock()
	delete(e.conns, conn)
	e.mu.Unlock()
}

// ActiveConnections returns the number of connections being served
func (e *Engine) ActiveConnections() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.conns)
}

// drain waits for in-flight connections up to the shutdown grace period,
// then closes the rest and waits for their goroutines.
func (e *Engine) drain() {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	grace := e.cfg.Server.ShutdownGrace.Duration()
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		return
	case <-timer.C:
	}

	e.mu.Lock()
	remaining := len(e.conns)
	for conn := range e.conns {
		conn.Close()
	}
	e.mu.Unlock()

	logger.Warn("shutdown_grace_expired",
		zap.Duration("grace", grace),
		zap.Int("closed", remaining),
	)
	<-done
}
