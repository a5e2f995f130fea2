package dialer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/netip"
	"strconv"

	"github.com/hexa-net/spindle/internal/prefix"
	"github.com/hexa-net/spindle/internal/resolver"
)

// Rotating dials targets over IPv6, binding a fresh random source
// address from the configured /64 for every connection attempt. Targets
// without a working IPv6 path get a direct IPv4 connection instead.
//
// No state is shared between calls: address rotation happens across
// connections, never within one. A connection, once established, keeps
// its source address for its entire lifetime.
type Rotating struct {
	cfg    Config
	prefix prefix.Prefix
	res    resolver.Resolver
	direct *Direct
	log    *slog.Logger

	// hostID supplies random host identifiers; overridable in tests.
	hostID func() uint64
}

func NewRotating(cfg Config, p prefix.Prefix, res resolver.Resolver, log *slog.Logger) *Rotating {
	if log == nil {
		log = slog.Default()
	}
	return &Rotating{
		cfg:    cfg,
		prefix: p,
		res:    res,
		direct: NewDirect(cfg),
		log:    log,
		hostID: rand.Uint64,
	}
}

func (d *Rotating) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, _, err := d.DialRoute(ctx, network, address)
	return conn, err
}

// DialRoute connects to address and reports the route taken: the bound
// IPv6 source address, or RouteIPv4Direct.
//
// Resolution order follows the resolver; every IPv6 candidate is tried
// with its own freshly generated source address. Resolution failure and
// "no AAAA records" are not errors here, just the trigger for the IPv4
// fallback. Only when both paths are exhausted is an error returned.
func (d *Rotating) DialRoute(ctx context.Context, network, address string) (net.Conn, string, error) {
	if network != "tcp" {
		return nil, "", fmt.Errorf("dial %s %s: unsupported network", network, address)
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, "", fmt.Errorf("dial %s: %w", address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, "", fmt.Errorf("dial %s: invalid port: %w", address, err)
	}

	rctx, cancel := context.WithTimeout(ctx, d.cfg.DialTimeout)
	targets, err := d.res.LookupIPv6(rctx, host)
	cancel()
	if err != nil {
		d.log.Debug("no IPv6 path, using IPv4", "host", host, "reason", err)
	}

	for _, target := range targets {
		src := d.prefix.Addr(d.hostID())
		conn, err := d.dialBound(ctx, src, netip.AddrPortFrom(target, uint16(port)))
		if err != nil {
			d.log.Debug("IPv6 candidate failed", "target", target, "source", src, "error", err)
			continue
		}
		return conn, src.String(), nil
	}

	conn, err := d.direct.DialContext(ctx, "tcp4", address)
	if err != nil {
		return nil, "", err
	}
	return conn, RouteIPv4Direct, nil
}

// dialBound connects to target from the given source address, port 0.
// On Linux the socket is marked freebind so the source does not have to
// be configured on an interface; the /64 only needs to be routed here.
func (d *Rotating) dialBound(ctx context.Context, src netip.Addr, target netip.AddrPort) (net.Conn, error) {
	nd := net.Dialer{
		Timeout:   d.cfg.DialTimeout,
		LocalAddr: &net.TCPAddr{IP: src.AsSlice()},
		Control:   freebindControl,
	}

	conn, err := nd.DialContext(ctx, "tcp6", target.String())
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(d.cfg.KeepAlive)
	}

	return conn, nil
}
