package dialer

import (
	"context"
	"net"
)

// RouteIPv4Direct labels connections made over the IPv4 fallback path,
// which uses the system default outbound address with no source binding.
const RouteIPv4Direct = "IPv4-direct"

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// RouteDialer additionally reports the route that served a connection:
// the chosen IPv6 source address, or RouteIPv4Direct.
type RouteDialer interface {
	Dialer
	DialRoute(ctx context.Context, network, address string) (net.Conn, string, error)
}
