// Package resolver performs the per-connection AAAA lookups that decide
// whether a target gets the rotated IPv6 path or the IPv4 fallback.
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

const resolvConfPath = "/etc/resolv.conf"

// Resolver looks up the IPv6 addresses of a target host. An error return
// (including "no AAAA records") is the expected trigger for the caller's
// IPv4 fallback, not a failure to report.
type Resolver interface {
	LookupIPv6(ctx context.Context, host string) ([]netip.Addr, error)
}

// DNS resolves AAAA records by querying the system's configured
// nameservers directly. When resolv.conf is unreadable or all servers
// fail, it falls back to the Go runtime resolver.
type DNS struct {
	client  *dns.Client
	servers []string
	sys     *net.Resolver
}

// New builds a DNS resolver. With no explicit servers, the nameserver
// list is read from resolv.conf; timeout bounds each query exchange.
func New(timeout time.Duration, servers ...string) *DNS {
	if len(servers) == 0 {
		if conf, err := dns.ClientConfigFromFile(resolvConfPath); err == nil {
			for _, s := range conf.Servers {
				servers = append(servers, net.JoinHostPort(s, conf.Port))
			}
		}
	}

	return &DNS{
		client:  &dns.Client{Timeout: timeout},
		servers: servers,
		sys:     net.DefaultResolver,
	}
}

// LookupIPv6 returns the target's AAAA addresses in resolver order.
// IP-literal hosts short-circuit: an IPv6 literal resolves to itself, an
// IPv4 literal has no IPv6 path.
func (r *DNS) LookupIPv6(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		if ip.Is6() && !ip.Is4In6() {
			return []netip.Addr{ip}, nil
		}
		return nil, fmt.Errorf("no AAAA records for %s", host)
	}

	if len(r.servers) == 0 {
		return r.lookupSystem(ctx, host)
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeAAAA)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}

		var addrs []netip.Addr
		for _, ans := range in.Answer {
			aaaa, ok := ans.(*dns.AAAA)
			if !ok {
				continue
			}
			if a, ok := netip.AddrFromSlice(aaaa.AAAA); ok {
				addrs = append(addrs, a.Unmap())
			}
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no AAAA records for %s", host)
		}
		return addrs, nil
	}

	// Every configured server failed; the runtime resolver may still
	// have a working path (e.g. mDNS or hosts file).
	addrs, err := r.lookupSystem(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, lastErr)
	}
	return addrs, nil
}

func (r *DNS) lookupSystem(ctx context.Context, host string) ([]netip.Addr, error) {
	ips, err := r.sys.LookupNetIP(ctx, "ip6", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}

	addrs := ips[:0]
	for _, ip := range ips {
		if ip.Is6() && !ip.Is4In6() {
			addrs = append(addrs, ip)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no AAAA records for %s", host)
	}
	return addrs, nil
}
