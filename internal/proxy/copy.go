package proxy

import (
	"context"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional relays bytes between client and upstream until both
// directions reach EOF. Mid-stream I/O errors (reset, broken pipe) count
// as normal termination and are not reported. The direction finishing
// first half-closes its destination so the peer can drain; both sockets
// are fully closed only after both directions return.
func CopyBidirectional(ctx context.Context, client, upstream net.Conn, bufSize int, m *Metrics) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = upstream.Close()
		})
	}

	// Context cancellation unblocks both copies by closing the sockets.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group

	g.Go(func() error {
		n := relay(upstream, client, bufSize)
		m.AddRelayBytes(directionToOrigin, n)
		closeWrite(upstream)
		return nil
	})

	g.Go(func() error {
		n := relay(client, upstream, bufSize)
		m.AddRelayBytes(directionToClient, n)
		closeWrite(client)
		return nil
	})

	_ = g.Wait()
	closeBoth()
}

func relay(dst io.Writer, src io.Reader, bufSize int) int64 {
	buf := make([]byte, bufSize)
	n, _ := io.CopyBuffer(dst, src, buf)
	return n
}

func closeWrite(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}

// bufferedConn lets the relay see bytes the request parser already
// buffered past the header block.
type bufferedConn struct {
	net.Conn
	r io.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

func (c *bufferedConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}
