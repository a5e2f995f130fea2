package socks5

// Package socks5 provides the small server-side SOCKS5 handshake layer
// used by spindle's optional SOCKS5 listener.
//
// It wraps the low-level protocol types in github.com/txthinking/socks5
// so negotiation and reply construction live in one place. It is not a
// general SOCKS5 implementation: only no-auth negotiation and the
// CONNECT command matter here.
