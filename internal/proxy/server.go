package proxy

import (
	"context"
	"log/slog"
	"net"
	"net/url"

	"github.com/google/uuid"
)

const (
	connectionEstablished = "HTTP/1.1 200 Connection Established\r\n\r\n"
	badGateway            = "HTTP/1.1 502 Bad Gateway\r\n\r\n"
)

// HTTPProxyServer serves standard HTTP/1.1 forward-proxy semantics:
// CONNECT targets become opaque byte tunnels, any other method with an
// absolute-URI target is rewritten to origin-form and forwarded over a
// plain TCP connection. Either way the outbound side goes through the
// configured rotating dialer.
type HTTPProxyServer struct {
	ctx context.Context
	cfg Config
	log *slog.Logger
}

func NewHTTPProxyServer(ctx context.Context, cfg Config) *HTTPProxyServer {
	if ctx == nil {
		ctx = context.Background()
	}
	return &HTTPProxyServer{ctx: ctx, cfg: cfg, log: cfg.logger()}
}

// Serve accepts proxy connections on ln until the listener closes.
func (s *HTTPProxyServer) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *HTTPProxyServer) handleConn(conn net.Conn) {
	defer conn.Close()

	req, err := readRequest(conn, s.cfg.NegotiationTimeout, s.cfg.HeaderTimeout)
	if err != nil {
		// Malformed request or parse timeout: silent drop.
		return
	}

	log := s.log.With("session", uuid.NewString()[:8])

	if req.method == "CONNECT" {
		s.handleConnect(conn, req, log)
		return
	}
	s.handleHTTP(conn, req, log)
}

func (s *HTTPProxyServer) handleConnect(conn net.Conn, req *request, log *slog.Logger) {
	host, port := splitConnectTarget(req.target)
	address := net.JoinHostPort(host, port)

	upstream, route, err := s.cfg.Dialer.DialRoute(s.ctx, "tcp", address)
	if err != nil {
		log.Warn("CONNECT failed", "target", address, "error", err)
		s.cfg.Metrics.DialFailed("connect")
		_, _ = conn.Write([]byte(badGateway))
		return
	}
	defer upstream.Close()

	log.Info("CONNECT", "target", address, "route", route)
	s.cfg.Metrics.SessionStarted("connect", route)
	defer s.cfg.Metrics.SessionEnded()

	if _, err := conn.Write([]byte(connectionEstablished)); err != nil {
		return
	}

	CopyBidirectional(s.ctx, &bufferedConn{Conn: conn, r: req.br}, upstream, s.cfg.bufferSize(), s.cfg.Metrics)
}

func (s *HTTPProxyServer) handleHTTP(conn net.Conn, req *request, log *slog.Logger) {
	u, err := url.Parse(req.target)
	if err != nil || u.Hostname() == "" {
		// Not an absolute URI; nothing sensible to answer.
		return
	}

	port := u.Port()
	if port == "" {
		port = "80"
	}
	address := net.JoinHostPort(u.Hostname(), port)

	upstream, route, err := s.cfg.Dialer.DialRoute(s.ctx, "tcp", address)
	if err != nil {
		log.Warn("request failed", "method", req.method, "target", truncate(req.target), "error", err)
		s.cfg.Metrics.DialFailed("http")
		_, _ = conn.Write([]byte(badGateway))
		return
	}
	defer upstream.Close()

	log.Info("request", "method", req.method, "target", truncate(req.target), "route", route)
	s.cfg.Metrics.SessionStarted("http", route)
	defer s.cfg.Metrics.SessionEnded()

	if _, err := upstream.Write(originFormRequest(req, u)); err != nil {
		_, _ = conn.Write([]byte(badGateway))
		return
	}

	CopyBidirectional(s.ctx, &bufferedConn{Conn: conn, r: req.br}, upstream, s.cfg.bufferSize(), s.cfg.Metrics)
}

// truncate keeps logged targets readable; some clients request absurdly
// long URIs.
func truncate(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max]
}
