package testutil

import (
	"bufio"
	"context"
	"net"
	"testing"
)

// StartCaptureServer accepts one connection, records everything up to
// the end of an HTTP header block (the blank line), writes response, and
// closes. The captured bytes arrive on the returned channel.
func StartCaptureServer(t *testing.T, ctx context.Context, response []byte) (net.Listener, <-chan []byte) {
	t.Helper()

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	context.AfterFunc(ctx, func() { _ = ln.Close() })

	captured := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		var got []byte
		br := bufio.NewReader(c)
		for {
			line, err := br.ReadString('\n')
			got = append(got, line...)
			if err != nil || line == "\r\n" || line == "\n" {
				break
			}
		}
		captured <- got

		_, _ = c.Write(response)
	}()

	return ln, captured
}
