package proxy

import (
	"fmt"
	"net/url"
	"strings"
)

// originFormRequest rebuilds a parsed absolute-URI request for the
// origin server: the request-line target becomes path+query and
// proxy-hop headers are dropped. All other headers pass through
// byte-for-byte.
func originFormRequest(req *request, u *url.URL) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\r\n", req.method, u.RequestURI(), req.version)
	for _, h := range req.headers {
		if isProxyHopHeader(h) {
			continue
		}
		b.WriteString(h)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// isProxyHopHeader reports whether a raw header line names a header that
// must not reach the origin server.
func isProxyHopHeader(line string) bool {
	name, _, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, "Proxy-Connection") ||
		strings.EqualFold(name, "Proxy-Authorization")
}
