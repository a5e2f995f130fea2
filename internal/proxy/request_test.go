package proxy

import (
	"net"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestReadRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		in          string
		wantErr     bool
		wantMethod  string
		wantTarget  string
		wantHeaders []string
	}{
		{
			name:       "connect",
			in:         "CONNECT example.com:443 HTTP/1.1\r\nHost: example.com:443\r\n\r\n",
			wantMethod: "CONNECT",
			wantTarget: "example.com:443",
			wantHeaders: []string{
				"Host: example.com:443",
			},
		},
		{
			name:       "method upper-cased",
			in:         "get http://example.com/ HTTP/1.1\r\n\r\n",
			wantMethod: "GET",
			wantTarget: "http://example.com/",
		},
		{
			name:       "bare lf header terminator",
			in:         "GET http://example.com/ HTTP/1.1\r\nAccept: */*\r\n\n",
			wantMethod: "GET",
			wantTarget: "http://example.com/",
			wantHeaders: []string{
				"Accept: */*",
			},
		},
		{
			name:    "empty line",
			in:      "\r\n",
			wantErr: true,
		},
		{
			name:    "two tokens",
			in:      "GET /\r\n\r\n",
			wantErr: true,
		},
		{
			name:    "no data",
			in:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := tcpPair(t)
			defer client.Close()
			defer server.Close()

			go func() {
				_, _ = client.Write([]byte(tt.in))
				_ = client.(*net.TCPConn).CloseWrite()
			}()

			req, err := readRequest(server, time.Second, time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.method != tt.wantMethod {
				t.Errorf("method = %q want %q", req.method, tt.wantMethod)
			}
			if req.target != tt.wantTarget {
				t.Errorf("target = %q want %q", req.target, tt.wantTarget)
			}
			if len(req.headers) != len(tt.wantHeaders) {
				t.Fatalf("headers = %q want %q", req.headers, tt.wantHeaders)
			}
			for i := range tt.wantHeaders {
				if req.headers[i] != tt.wantHeaders[i] {
					t.Errorf("header %d = %q want %q", i, req.headers[i], tt.wantHeaders[i])
				}
			}
		})
	}
}

func TestSplitConnectTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		wantHost string
		wantPort string
	}{
		{"example.com:443", "example.com", "443"},
		{"example.com:8443", "example.com", "8443"},
		{"example.com", "example.com", "443"},
		{"192.0.2.1:443", "192.0.2.1", "443"},
	}

	for _, tt := range tests {
		host, port := splitConnectTarget(tt.in)
		if host != tt.wantHost || port != tt.wantPort {
			t.Errorf("splitConnectTarget(%q) = %q, %q want %q, %q", tt.in, host, port, tt.wantHost, tt.wantPort)
		}
	}
}

func TestOriginFormRequest(t *testing.T) {
	t.Parallel()

	req := &request{
		method:  "GET",
		target:  "http://example.com/path?q=1",
		version: "HTTP/1.1",
		headers: []string{
			"Host: example.com",
			"Proxy-Connection: keep-alive",
			"proxy-authorization: Basic Zm9vOmJhcg==",
			"User-Agent: curl/8.0",
		},
	}
	u, err := url.Parse(req.target)
	if err != nil {
		t.Fatal(err)
	}

	got := string(originFormRequest(req, u))
	want := "GET /path?q=1 HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"User-Agent: curl/8.0\r\n" +
		"\r\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestOriginFormRequestEmptyPath(t *testing.T) {
	t.Parallel()

	req := &request{method: "GET", target: "http://example.com", version: "HTTP/1.1"}
	u, err := url.Parse(req.target)
	if err != nil {
		t.Fatal(err)
	}

	got := string(originFormRequest(req, u))
	if !strings.HasPrefix(got, "GET / HTTP/1.1\r\n") {
		t.Fatalf("empty path not rewritten to /: %q", got)
	}
}

func TestIsProxyHopHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want bool
	}{
		{"Proxy-Connection: keep-alive", true},
		{"PROXY-CONNECTION: close", true},
		{"Proxy-Authorization: Basic abc", true},
		{"Proxy-Authenticate: Basic", false},
		{"Connection: keep-alive", false},
		{"Host: example.com", false},
		{"no colon here", false},
	}

	for _, tt := range tests {
		if got := isProxyHopHeader(tt.line); got != tt.want {
			t.Errorf("isProxyHopHeader(%q) = %v want %v", tt.line, got, tt.want)
		}
	}
}
