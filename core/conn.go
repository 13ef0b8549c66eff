package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
)

// serveConn runs the one-request pipeline for an accepted connection:
// optional TLS handshake, read, parse, dispatch, write, optional upgrade
// hand-off, close.
func (e *Engine) serveConn(raw net.Conn, handler http.Handler) {
	defer e.wg.Done()
	defer e.untrack(raw)
	defer raw.Close()

	e.monitor.ConnectionOpened()
	defer e.monitor.ConnectionClosed()

	remote := raw.RemoteAddr().String()
	readTimeout := e.cfg.Server.ReadTimeout.Duration()

	conn := raw
	if e.upgrader != nil {
		ctx, cancel := withOptionalTimeout(readTimeout)
		upgraded, err := e.upgrader.Upgrade(ctx, raw)
		cancel()
		if err != nil {
			e.monitor.IOError(stageTLS)
			logger.Debug("tls_handshake_failed", zap.String("remote", remote), zap.Error(err))
			return
		}
		conn = upgraded
		defer upgraded.Close()
	}

	setDeadline(conn.SetReadDeadline, readTimeout)
	buf := e.bytePool.Get(e.cfg.Server.ReadBufferSize.Int())
	n, err := readRequest(conn, *buf)
	if err != nil {
		e.bytePool.Put(buf)
		e.monitor.IOError(stageRead)
		logger.Debug("connection_read_failed", zap.String("remote", remote), zap.Error(err))
		return
	}
	if n == 0 {
		// Closed without sending anything
		e.bytePool.Put(buf)
		return
	}

	data := (*buf)[:n]
	// An upgrade request ends at its head. Bytes after it, such as a
	// WebSocket frame sent together with the handshake, belong to the
	// upgraded session.
	var rest []byte
	if head, ok := scanHead(data); ok && head.upgrade && head.size < n {
		rest = bytes.Clone(data[head.size:])
		data = data[:head.size]
	}

	resp := e.respond(handler, data, remote)
	e.bytePool.Put(buf)

	setDeadline(conn.SetWriteDeadline, e.cfg.Server.WriteTimeout.Duration())
	if _, err := resp.WriteTo(conn); err != nil {
		e.monitor.IOError(stageWrite)
		logger.Debug("connection_write_failed", zap.String("remote", remote), zap.Error(err))
		return
	}

	if upgrade := resp.Upgrade(); upgrade != nil && resp.Status() == http.StatusSwitchingProtocols {
		_ = conn.SetDeadline(time.Time{})
		upgrade(withPrefix(conn, rest))
	}
}

// respond parses raw and runs the handler chain. Parse failures become a
// 400 and handler panics a 500.
func (e *Engine) respond(handler http.Handler, raw []byte, remote string) (resp *http.Response) {
	req, err := http.Parse(raw)
	if err != nil {
		e.monitor.ParseError()
		logger.Debug("request_parse_failed", zap.String("remote", remote), zap.Error(err))
		return http.BadRequest()
	}
	req.RemoteAddr = remote

	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler_panic",
				zap.String("method", req.Method.String()),
				zap.String("path", req.Path()),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			resp = http.InternalServerError()
		}
	}()

	resp = handler.Serve(req)
	if resp == nil {
		logger.Error("handler_returned_nil", zap.String("method", req.Method.String()), zap.String("path", req.Path()))
		return http.InternalServerError()
	}
	return resp
}

// readRequest fills buf until the head and any Content-Length body have
// arrived, the peer stops sending or buf is full. Requests longer than buf
// are truncated.
func readRequest(conn net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if requestComplete(buf[:n]) {
			return n, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			// Parse what arrived before the deadline
			if n > 0 && errors.Is(err, os.ErrDeadlineExceeded) {
				return n, nil
			}
			return n, err
		}
	}
	return n, nil
}

// requestComplete reports whether b holds a full head and, when a
// Content-Length is announced, the full body.
func requestComplete(b []byte) bool {
	head, ok := scanHead(b)
	return ok && len(b) >= head.size
}

// headInfo describes the request at the start of a read buffer
type headInfo struct {
	// size covers the head, its terminator and the announced Content-Length
	size    int
	upgrade bool
}

// scanHead looks at the request head in b. ok is false until the head
// terminator has arrived.
func scanHead(b []byte) (info headInfo, ok bool) {
	end, sep := headEnd(b)
	if end < 0 {
		return info, false
	}

	want := 0
	for _, line := range strings.Split(string(b[:end]), "\n") {
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "content-length":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
				want = n
			}
		case "upgrade":
			info.upgrade = strings.TrimSpace(value) != ""
		}
	}
	info.size = end + sep + want
	return info, true
}

// headEnd returns the offset of the blank line ending the head and the
// length of its separator, or -1.
func headEnd(b []byte) (int, int) {
	crlf := bytes.Index(b, []byte("\r\n\r\n"))
	lf := bytes.Index(b, []byte("\n\n"))
	switch {
	case lf >= 0 && (crlf < 0 || lf < crlf):
		return lf, 2
	case crlf >= 0:
		return crlf, 4
	}
	return -1, 0
}

// prefixConn replays bytes that were read ahead before reading from Conn
type prefixConn struct {
	net.Conn
	r io.Reader
}

func (c *prefixConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func withPrefix(conn net.Conn, prefix []byte) net.Conn {
	if len(prefix) == 0 {
		return conn
	}
	return &prefixConn{Conn: conn, r: io.MultiReader(bytes.NewReader(prefix), conn)}
}

func withOptionalTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

func setDeadline(set func(time.Time) error, d time.Duration) {
	if d > 0 {
		_ = set(time.Now().Add(d))
	}
}
