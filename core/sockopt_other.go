//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package core

import "syscall"

const reusePortSupported = false

func listenControl(reusePort bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
