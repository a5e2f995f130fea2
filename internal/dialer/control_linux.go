//go:build linux

package dialer

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// freebindControl sets IPV6_FREEBIND on the outbound socket so it can
// bind source addresses from the /64 that are not configured on any
// local interface. Note: the host still needs a route for the prefix.
func freebindControl(network, address string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		ctrlErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_FREEBIND, 1)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}
