package dialer

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"testing"
	"time"

	"github.com/hexa-net/spindle/internal/prefix"
	"github.com/hexa-net/spindle/internal/testutil"
)

type stubResolver struct {
	addrs []netip.Addr
	err   error
	calls int
}

func (s *stubResolver) LookupIPv6(ctx context.Context, host string) ([]netip.Addr, error) {
	s.calls++
	return s.addrs, s.err
}

func testPrefix(t *testing.T) prefix.Prefix {
	t.Helper()
	p, err := prefix.Parse("2001:db8:0:1")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRotatingFallsBackToIPv4(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoServer(t, ctx)

	res := &stubResolver{err: errors.New("no AAAA records for echo.test")}
	d := NewRotating(Config{DialTimeout: 2 * time.Second}, testPrefix(t), res, slog.Default())

	conn, route, err := d.DialRoute(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if route != RouteIPv4Direct {
		t.Fatalf("route = %q, want %q", route, RouteIPv4Direct)
	}
	if res.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", res.calls)
	}

	testutil.AssertEcho(t, conn, conn, []byte("fallback"))
}

// Each IPv6 candidate must be tried with its own freshly generated
// source address; once all candidates fail the IPv4 path still works.
func TestRotatingFreshSourcePerCandidate(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoServer(t, ctx)

	// Candidates on the documentation prefix are unreachable; binding a
	// 2001:db8 source either fails outright or the connect is refused,
	// so both attempts fail fast and the dial falls back.
	res := &stubResolver{addrs: []netip.Addr{
		netip.MustParseAddr("2001:db8:ffff::1"),
		netip.MustParseAddr("2001:db8:ffff::2"),
	}}

	d := NewRotating(Config{DialTimeout: 500 * time.Millisecond}, testPrefix(t), res, slog.Default())
	var ids []uint64
	var next uint64
	d.hostID = func() uint64 {
		next++
		ids = append(ids, next)
		return next
	}

	conn, route, err := d.DialRoute(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if route != RouteIPv4Direct {
		t.Fatalf("route = %q, want %q", route, RouteIPv4Direct)
	}
	if len(ids) != 2 {
		t.Fatalf("generated %d source addresses for 2 candidates, want 2", len(ids))
	}
	if ids[0] == ids[1] {
		t.Fatal("source address reused across candidate attempts")
	}
}

func TestRotatingRejectsNonTCP(t *testing.T) {
	t.Parallel()

	d := NewRotating(Config{DialTimeout: time.Second}, testPrefix(t), &stubResolver{}, slog.Default())
	if _, _, err := d.DialRoute(context.Background(), "udp", "127.0.0.1:53"); err == nil {
		t.Fatal("expected error for udp network")
	}
}

func TestDirectDialRoute(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoServer(t, ctx)

	d := NewDirect(Config{DialTimeout: 2 * time.Second})
	conn, route, err := d.DialRoute(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if route != RouteIPv4Direct {
		t.Fatalf("route = %q, want %q", route, RouteIPv4Direct)
	}
	testutil.AssertEcho(t, conn, conn, []byte("direct"))
}
