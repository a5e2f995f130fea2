//go:build !linux

package dialer

import "syscall"

// Only Linux has a freebind sockopt; elsewhere every generated source
// address must actually be assigned to an interface.
func freebindControl(network, address string, c syscall.RawConn) error {
	return nil
}
