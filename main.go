// Command spindle is a rotating-source-address forward proxy.
//
// It accepts standard HTTP proxy traffic (CONNECT tunnels and plain
// absolute-URI requests) and relays it to the Internet, choosing a fresh
// pseudo-random IPv6 source address from an operator-configured /64 for
// every outbound connection, falling back to direct IPv4 when a target
// has no IPv6 path. The host must own or have routing for the whole
// prefix; spindle marks outbound sockets freebind so individual
// addresses need not be configured on an interface.
//
// Configuration comes from flags, with PROXY_LISTEN, PROXY_PORT,
// IPV6_PREFIX, and PROXY_LOG_LEVEL as environment defaults:
//
//	IPV6_PREFIX=2a13:4ac0:20:16 spindle
//	export HTTPS_PROXY=http://127.0.0.1:9595
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // Intentionally exposed on debug port.
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/hexa-net/spindle/internal/dialer"
	"github.com/hexa-net/spindle/internal/logging"
	"github.com/hexa-net/spindle/internal/prefix"
	"github.com/hexa-net/spindle/internal/proxy"
	"github.com/hexa-net/spindle/internal/resolver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listen      = pflag.String("listen", envDefault("PROXY_LISTEN", "127.0.0.1"), "Bind address for the HTTP proxy listener")
		port        = pflag.Int("port", envDefaultInt("PROXY_PORT", 9595), "Bind port for the HTTP proxy listener")
		prefixStr   = pflag.String("ipv6-prefix", os.Getenv("IPV6_PREFIX"), "IPv6 /64 prefix for outbound source addresses (e.g. 2a13:4ac0:20:16)")
		logLevel    = pflag.String("log-level", envDefault("PROXY_LOG_LEVEL", "info"), "Log verbosity: debug|info|warn|error")
		socksListen = pflag.String("socks5-listen", "", "SOCKS5 listen address (e.g. 127.0.0.1:1080). Empty disables.")

		metricsListen = pflag.String("metrics-listen", "", "Prometheus /metrics listen address (e.g. 127.0.0.1:9100). Empty disables.")
		debugListen   = pflag.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof (e.g. 127.0.0.1:6060). Empty disables.")

		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound DNS lookup and each TCP connect attempt")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 30*time.Second, "Timeout waiting for a client's request line")
		headerTimeout      = pflag.Duration("header-timeout", 10*time.Second, "Timeout for each request header line")
		bufferSize         = pflag.Int("buffer-size", proxy.DefaultBufferSize, "Relay buffer size in bytes, per direction")
		tcpKeepAlive       = pflag.String("tcp-keepalive", "45:45:3", "TCP keepalive: on|off|keepidle:keepintvl:keepcnt")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	log := logging.Setup(*logLevel)

	p, err := prefix.Parse(*prefixStr)
	if err != nil {
		return fmt.Errorf("invalid --ipv6-prefix (or IPV6_PREFIX): %w", err)
	}

	ka, err := parseTCPKeepAlive(*tcpKeepAlive)
	if err != nil {
		return fmt.Errorf("invalid --tcp-keepalive: %w", err)
	}

	dialCfg := dialer.Config{
		DialTimeout: *dialTimeout,
		KeepAlive:   ka,
	}
	rot := dialer.NewRotating(dialCfg, p, resolver.New(*dialTimeout), log)

	cfg := proxy.Config{
		Dialer:             rot,
		NegotiationTimeout: *negotiationTimeout,
		HeaderTimeout:      *headerTimeout,
		BufferSize:         *bufferSize,
		KeepAlive:          ka,
		Logger:             log,
	}
	if *metricsListen != "" {
		cfg.Metrics = proxy.NewMetrics(prometheus.DefaultRegisterer)
	}

	g, ctx := errgroup.WithContext(context.Background())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpAddr := net.JoinHostPort(*listen, strconv.Itoa(*port))
	httpLn, err := proxy.ListenTCP("tcp", httpAddr, ka)
	if err != nil {
		return fmt.Errorf("proxy listen: %w", err)
	}
	srv := proxy.NewHTTPProxyServer(ctx, cfg)
	context.AfterFunc(ctx, func() {
		_ = httpLn.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(httpLn); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("proxy serve: %w", err)
		}
		return nil
	})
	log.Info("rotating proxy listening", "addr", httpAddr, "prefix", p.String())

	if *socksListen != "" {
		ln, err := proxy.ListenTCP("tcp", *socksListen, ka)
		if err != nil {
			return fmt.Errorf("socks5 listen: %w", err)
		}
		s5 := proxy.NewSOCKS5Server(ctx, cfg)
		context.AfterFunc(ctx, func() {
			_ = ln.Close()
		})

		g.Go(func() error {
			if err := s5.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("socks5 serve: %w", err)
			}
			return nil
		})
		log.Info("socks5 listening", "addr", *socksListen)
	}

	if *metricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := serveHTTP(ctx, g, *metricsListen, mux, ka); err != nil {
			return fmt.Errorf("metrics listen: %w", err)
		}
		log.Info("metrics listening", "addr", *metricsListen)
	}

	if *debugListen != "" {
		if err := serveHTTP(ctx, g, *debugListen, http.DefaultServeMux, ka); err != nil {
			return fmt.Errorf("debug listen: %w", err)
		}
		log.Info("debug listening", "addr", *debugListen)
	}

	err = g.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	log.Info("shutting down")
	return err
}

// serveHTTP runs an auxiliary HTTP listener (metrics, pprof) tied to ctx.
func serveHTTP(ctx context.Context, g *errgroup.Group, addr string, handler http.Handler, ka net.KeepAliveConfig) error {
	ln, err := proxy.ListenTCP("tcp", addr, ka)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: handler} //nolint:gosec // Not concerned about timeouts on operator-only ports.
	context.AfterFunc(ctx, func() {
		_ = srv.Close()
		_ = ln.Close()
	})

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return nil
}

func parseTCPKeepAlive(s string) (net.KeepAliveConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return net.KeepAliveConfig{}, errors.New("empty")
	case "on":
		return net.KeepAliveConfig{Enable: true}, nil
	case "off":
		return net.KeepAliveConfig{Enable: false}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return net.KeepAliveConfig{}, errors.New("expected on|off|keepidle:keepintvl:keepcnt")
	}

	var vals [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return net.KeepAliveConfig{}, err
		}
		if n <= 0 {
			return net.KeepAliveConfig{}, errors.New("values must be > 0")
		}
		vals[i] = n
	}

	return net.KeepAliveConfig{
		Enable:   true,
		Idle:     time.Duration(vals[0]) * time.Second,
		Interval: time.Duration(vals[1]) * time.Second,
		Count:    vals[2],
	}, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
