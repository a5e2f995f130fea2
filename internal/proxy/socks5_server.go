package proxy

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/hexa-net/spindle/internal/socks5"
)

// SOCKS5Server is the optional SOCKS5 front-end. It tunnels CONNECT
// through the same rotating dialer as the HTTP listener, so every SOCKS5
// session gets its own outbound source address too.
type SOCKS5Server struct {
	ctx context.Context
	cfg Config
	log *slog.Logger
}

func NewSOCKS5Server(ctx context.Context, cfg Config) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SOCKS5Server{ctx: ctx, cfg: cfg, log: cfg.logger()}
}

func (s *SOCKS5Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn) {
	defer conn.Close()

	ApplyKeepAlive(conn, s.cfg.KeepAlive)

	_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))

	if err := socks5.Negotiate(conn); err != nil {
		return
	}

	req, err := socks5.ReadRequest(conn)
	if err != nil {
		return
	}
	if req.Cmd != socks5.CmdConnect {
		socks5.WriteCommandNotSupportedReply(conn, req.Atyp)
		return
	}

	_ = conn.SetDeadline(time.Time{})

	log := s.log.With("session", uuid.NewString()[:8])
	address := req.Address()

	upstream, route, err := s.cfg.Dialer.DialRoute(s.ctx, "tcp", address)
	if err != nil {
		log.Warn("SOCKS5 CONNECT failed", "target", address, "error", err)
		s.cfg.Metrics.DialFailed("socks5")
		socks5.WriteHostUnreachableReply(conn, req.Atyp)
		return
	}
	defer upstream.Close()

	if err := socks5.WriteSuccessReply(conn, upstream.LocalAddr()); err != nil {
		return
	}

	log.Info("SOCKS5 CONNECT", "target", address, "route", route)
	s.cfg.Metrics.SessionStarted("socks5", route)
	defer s.cfg.Metrics.SessionEnded()

	CopyBidirectional(s.ctx, conn, upstream, s.cfg.bufferSize(), s.cfg.Metrics)
}
