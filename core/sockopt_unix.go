//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package core

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const reusePortSupported = true

// listenControl returns the socket hook for the listener. With reusePort
// the socket gets SO_REUSEPORT before bind, so several processes can
// accept on one port and the kernel spreads connections between them.
func listenControl(reusePort bool) func(network, address string, c syscall.RawConn) error {
	if !reusePort {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
