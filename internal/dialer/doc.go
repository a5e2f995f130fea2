package dialer

// Package dialer provides the outbound dialing implementations used by
// spindle.
//
// Dialers implement a small interface (DialContext, plus DialRoute for
// callers that log which route served a connection). Rotating resolves a
// target's AAAA records and connects over IPv6 with a freshly generated
// random source address from the operator's /64 for every attempt,
// falling back to a direct IPv4 connection when the target has no IPv6
// path. Direct is the plain fallback dialer.
