// Package secure upgrades accepted connections to TLS before the request
// pipeline sees them.
package secure

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
)

// ErrIdentity is returned when the certificate or key cannot be loaded
var ErrIdentity = errors.New("tls identity")

// Upgrader turns a raw accepted connection into the stream the server
// reads requests from.
type Upgrader interface {
	Upgrade(ctx context.Context, conn net.Conn) (net.Conn, error)
}

// Acceptor performs the server side of a TLS handshake
type Acceptor struct {
	config *tls.Config
}

// NewAcceptor loads a PEM certificate chain and private key
func NewAcceptor(certFile, keyFile string) (*Acceptor, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentity, err)
	}
	return NewAcceptorFromConfig(&tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}), nil
}

// NewAcceptorFromConfig wraps an existing tls.Config
func NewAcceptorFromConfig(cfg *tls.Config) *Acceptor {
	return &Acceptor{config: cfg}
}

// Upgrade runs the handshake. ctx bounds the handshake; the caller still
// owns conn when an error is returned.
func (a *Acceptor) Upgrade(ctx context.Context, conn net.Conn) (net.Conn, error) {
	tc := tls.Server(conn, a.config)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tc, nil
}
