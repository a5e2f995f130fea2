package dialer

import (
	"context"
	"fmt"
	"net"
)

// Direct dials outbound connections from the system default address.
type Direct struct {
	cfg Config
}

func NewDirect(cfg Config) *Direct {
	return &Direct{cfg: cfg}
}

func (d *Direct) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	dd := net.Dialer{Timeout: d.cfg.DialTimeout}

	conn, err := dd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	return conn, nil
}

// DialRoute implements RouteDialer; Direct connections always take the
// unbound route.
func (d *Direct) DialRoute(ctx context.Context, network, address string) (net.Conn, string, error) {
	conn, err := d.DialContext(ctx, network, address)
	return conn, RouteIPv4Direct, err
}
