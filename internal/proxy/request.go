package proxy

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"time"
)

// errMalformed covers everything answered with a silent drop:
// empty or short request lines, header reads that time out, clients that
// hang up mid-parse.
var errMalformed = errors.New("malformed request")

// request is a parsed inbound proxy request. The reader retains any
// bytes buffered past the header block so the relay can replay them.
type request struct {
	method  string
	target  string
	version string
	headers []string

	br *bufio.Reader
}

// readRequest parses one request line and header block from conn.
// The first line gets firstTimeout (bounding idle clients); each header
// line gets headerTimeout. Deadlines are cleared before returning so the
// tunnel itself has no lifetime limit.
func readRequest(conn net.Conn, firstTimeout, headerTimeout time.Duration) (*request, error) {
	br := bufio.NewReader(conn)

	_ = conn.SetReadDeadline(time.Now().Add(firstTimeout))
	line, err := readLine(br)
	if err != nil {
		return nil, errMalformed
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return nil, errMalformed
	}

	req := &request{
		method:  strings.ToUpper(parts[0]),
		target:  parts[1],
		version: parts[2],
		br:      br,
	}

	for {
		_ = conn.SetReadDeadline(time.Now().Add(headerTimeout))
		h, err := readLine(br)
		if err != nil {
			return nil, errMalformed
		}
		if h == "" {
			break
		}
		req.headers = append(req.headers, h)
	}

	_ = conn.SetReadDeadline(time.Time{})
	return req, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// splitConnectTarget splits a CONNECT target on its last colon,
// defaulting to port 443. IPv6-literal targets are out of scope for this
// rule; CONNECT targets are hostnames or IPv4 literals.
func splitConnectTarget(target string) (host, port string) {
	if i := strings.LastIndex(target, ":"); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, "443"
}
