// Package prefix validates the operator's IPv6 /64 and generates random
// host addresses inside it for outbound source-address rotation.
package prefix

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"net/netip"
	"strings"
)

// Prefix is a validated IPv6 /64 network prefix.
//
// Only the upper 64 bits are retained; the lower 64 bits of generated
// addresses come from a caller-supplied random host identifier.
type Prefix struct {
	hi uint64
}

// Parse accepts either the bare four-group form used by the IPV6_PREFIX
// environment variable ("2a13:4ac0:20:16") or full CIDR notation
// ("2a13:4ac0:20:16::/64"). Any prefix length other than /64 is
// rejected.
func Parse(s string) (Prefix, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Prefix{}, fmt.Errorf("empty prefix")
	}
	if !strings.Contains(s, "/") {
		s += "::/64"
	}

	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Prefix{}, fmt.Errorf("parse prefix %q: %w", s, err)
	}
	if !p.Addr().Is6() || p.Addr().Is4In6() {
		return Prefix{}, fmt.Errorf("prefix %q: not an IPv6 prefix", s)
	}
	if p.Bits() != 64 {
		return Prefix{}, fmt.Errorf("prefix %q: length /%d not supported, must be /64", s, p.Bits())
	}
	if p.Addr() != p.Masked().Addr() {
		return Prefix{}, fmt.Errorf("prefix %q: host bits must be zero", s)
	}

	a := p.Addr().As16()
	return Prefix{hi: binary.BigEndian.Uint64(a[:8])}, nil
}

// Addr combines the prefix bits with hostID into a full IPv6 address.
// It is a pure function: the same hostID always yields the same address.
func (p Prefix) Addr(hostID uint64) netip.Addr {
	var a [16]byte
	binary.BigEndian.PutUint64(a[:8], p.hi)
	binary.BigEndian.PutUint64(a[8:], hostID)
	return netip.AddrFrom16(a)
}

// Random returns an address with a uniformly distributed host identifier
// drawn from r.
func (p Prefix) Random(r *rand.Rand) netip.Addr {
	return p.Addr(r.Uint64())
}

// Contains reports whether addr falls inside the /64.
func (p Prefix) Contains(addr netip.Addr) bool {
	if !addr.Is6() || addr.Is4In6() {
		return false
	}
	a := addr.As16()
	return binary.BigEndian.Uint64(a[:8]) == p.hi
}

// String returns the prefix in CIDR notation.
func (p Prefix) String() string {
	return netip.PrefixFrom(p.Addr(0), 64).String()
}
