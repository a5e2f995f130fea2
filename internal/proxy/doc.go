package proxy

// Package proxy implements spindle's listener-side servers and shared
// connection plumbing.
//
// It contains the HTTP forward proxy (CONNECT tunnels and plain
// absolute-URI requests rewritten to origin-form), the optional SOCKS5
// server, the bidirectional relay, keepalive listeners, and Prometheus
// metrics. Every accepted connection is handled by its own goroutine
// with no state shared between sessions beyond the immutable Config and
// the metrics counters.
