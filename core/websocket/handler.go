// Package websocket upgrades a routed request to a WebSocket and speaks the
// frame protocol on the raw connection afterwards.
package websocket

import (
	"encoding/base64"
	"errors"
	"net"
	"runtime/debug"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/searchktools/trellis/core/http"
	"github.com/searchktools/trellis/core/logger"
)

var (
	ErrNotUpgrade = errors.New("websocket: not an upgrade request")
	ErrBadKey     = errors.New("websocket: invalid Sec-WebSocket-Key")
	ErrBadVersion = errors.New("websocket: unsupported Sec-WebSocket-Version")
)

// SessionFunc runs on its own goroutine once the 101 response is written.
// The connection is closed when it returns.
type SessionFunc func(conn *Conn)

// Handler answers upgrade requests with 101 and hands the connection to
// fn. protocols lists supported subprotocols in preference order; the
// first one the client offers is selected.
func Handler(fn SessionFunc, protocols ...string) http.HandlerFunc {
	return func(req *http.Request) *http.Response {
		key, err := CheckUpgrade(req)
		if err != nil {
			logger.Debug("websocket_upgrade_rejected", zap.String("path", req.Path()), zap.Error(err))
			return http.BadRequest()
		}

		resp := http.WebSocketUpgrade(key, selectProtocol(req, protocols))
		return resp.OnUpgrade(func(raw net.Conn) {
			ws := NewConn(raw)
			defer ws.Close()
			defer func() {
				if err := recover(); err != nil {
					logger.Error("websocket_session_panic",
						zap.String("path", req.Path()),
						zap.Any("panic", err),
						zap.ByteString("stack", debug.Stack()),
					)
				}
			}()
			fn(ws)
		})
	}
}

// CheckUpgrade validates the handshake headers and returns the client key
func CheckUpgrade(req *http.Request) (string, error) {
	if req.Method != http.GET ||
		!headerHasToken(req.Header(http.HeaderUpgrade), "websocket") ||
		!headerHasToken(req.Header(http.HeaderConnection), "upgrade") {
		return "", ErrNotUpgrade
	}

	if v := req.Header(http.HeaderSecWebSocketVersion); v != "" && strings.TrimSpace(v) != "13" {
		return "", ErrBadVersion
	}

	key := strings.TrimSpace(req.Header(http.HeaderSecWebSocketKey))
	if decoded, err := base64.StdEncoding.DecodeString(key); err != nil || len(decoded) != 16 {
		return "", ErrBadKey
	}
	return key, nil
}

func selectProtocol(req *http.Request, supported []string) string {
	if len(supported) == 0 {
		return ""
	}
	for _, offered := range strings.Split(req.Header(http.HeaderSecWebSocketProtocol), ",") {
		if p := strings.TrimSpace(offered); slices.Contains(supported, p) {
			return p
		}
	}
	return ""
}

func headerHasToken(value, token string) bool {
	for _, part := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
