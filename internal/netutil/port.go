package netutil

import (
	"fmt"
	"net"
)

// IsPortAvailable reports whether a TCP port on localhost can be bound.
// The throwaway listener is released before returning; any bind failure
// (address in use, permission denied) reports unavailable rather than erroring.
func IsPortAvailable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// FreePort asks the kernel for an unused TCP port.
func FreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
