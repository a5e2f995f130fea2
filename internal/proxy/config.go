package proxy

import (
	"log/slog"
	"net"
	"time"

	"github.com/hexa-net/spindle/internal/dialer"
)

// DefaultBufferSize is the per-direction relay buffer size used when
// Config.BufferSize is unset.
const DefaultBufferSize = 64 * 1024

type Config struct {
	// Dialer establishes outbound connections and reports the route
	// (rotated IPv6 source or IPv4 fallback) for logging.
	Dialer dialer.RouteDialer

	// NegotiationTimeout bounds the wait for a client's request line
	// (or the SOCKS5 handshake).
	NegotiationTimeout time.Duration

	// HeaderTimeout bounds each individual header-line read.
	HeaderTimeout time.Duration

	// BufferSize is the relay copy buffer size per direction.
	BufferSize int

	KeepAlive net.KeepAliveConfig

	Logger *slog.Logger

	// Metrics may be nil; all recording methods tolerate that.
	Metrics *Metrics
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return DefaultBufferSize
}

// ApplyKeepAlive applies ka when conn is a TCP connection.
func ApplyKeepAlive(conn net.Conn, ka net.KeepAliveConfig) {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(ka)
	}
}
