package secure

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAcceptorBadIdentity(t *testing.T) {
	dir := t.TempDir()

	_, err := NewAcceptor(filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem"))
	assert.ErrorIs(t, err, ErrIdentity)

	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not pem"), 0o600))
	_, err = NewAcceptor(garbage, garbage)
	assert.ErrorIs(t, err, ErrIdentity)
}

func TestAcceptorHandshake(t *testing.T) {
	certFile, keyFile, err := WriteSelfSigned(t.TempDir(), "127.0.0.1", "localhost")
	require.NoError(t, err)

	acceptor, err := NewAcceptor(certFile, keyFile)
	require.NoError(t, err)

	serverSide, clientSide := net.Pipe()
	defer clientSide.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		conn, err := acceptor.Upgrade(ctx, serverSide)
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		_, err = conn.Write([]byte("hello over tls"))
		done <- err
	}()

	client := tls.Client(clientSide, &tls.Config{InsecureSkipVerify: true})
	buf := make([]byte, len("hello over tls"))
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "hello over tls", string(buf))
	require.NoError(t, <-done)
}

func TestAcceptorHandshakeFailure(t *testing.T) {
	certFile, keyFile, err := WriteSelfSigned(t.TempDir(), "localhost")
	require.NoError(t, err)
	acceptor, err := NewAcceptor(certFile, keyFile)
	require.NoError(t, err)

	serverSide, clientSide := net.Pipe()
	go func() {
		clientSide.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
		clientSide.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = acceptor.Upgrade(ctx, serverSide)
	serverSide.Close()
	assert.Error(t, err)
}
