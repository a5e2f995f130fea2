package proxy

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/txthinking/socks5"

	"github.com/hexa-net/spindle/internal/testutil"
)

func TestSOCKS5ConnectTunnel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoServer(t, ctx)

	ln, err := ListenTCP("tcp", "127.0.0.1:0", net.KeepAliveConfig{Enable: false})
	if err != nil {
		t.Fatal(err)
	}
	context.AfterFunc(ctx, func() { _ = ln.Close() })

	srv := NewSOCKS5Server(ctx, testConfig())
	go func() { _ = srv.Serve(ln) }()

	client, err := socks5.NewClient(ln.Addr().String(), "", "", 2, 0)
	if err != nil {
		t.Fatal(err)
	}

	c, err := client.Dial("tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("hello"))
}
