package testutil

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
)

// HTTPProxy is a loopback HTTP forward proxy. CONNECT requests are answered
// with Status, and tunneled when Status is 200. Absolute-form requests are
// relayed to their origin.
type HTTPProxy struct {
	Addr string

	status   int
	wantAuth string
	requests atomic.Int64

	mu       sync.Mutex
	authSeen []string
}

// StartHTTPProxy starts a fake HTTP proxy. A non-empty wantAuth is compared
// against the Proxy-Authorization header and answered with 407 on mismatch.
func StartHTTPProxy(t *testing.T, ctx context.Context, status int, wantAuth string) *HTTPProxy {
	t.Helper()

	p := &HTTPProxy{status: status, wantAuth: wantAuth}
	ln := StartServer(t, ctx, func(c net.Conn) {
		p.serve(ctx, c)
	})
	p.Addr = ln.Addr().String()
	return p
}

// Requests reports how many proxy requests have been read.
func (p *HTTPProxy) Requests() int64 {
	return p.requests.Load()
}

// AuthHeaders returns every Proxy-Authorization value received.
func (p *HTTPProxy) AuthHeaders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.authSeen...)
}

func (p *HTTPProxy) serve(ctx context.Context, c net.Conn) {
	br := bufio.NewReader(c)
	req, err := http.ReadRequest(br)
	if err != nil {
		return
	}
	p.requests.Add(1)

	got := req.Header.Get("Proxy-Authorization")
	p.mu.Lock()
	p.authSeen = append(p.authSeen, got)
	p.mu.Unlock()

	if p.wantAuth != "" && got != p.wantAuth {
		writeStatus(c, http.StatusProxyAuthRequired)
		return
	}

	if req.Method != http.MethodConnect {
		p.forward(ctx, c, br, req)
		return
	}

	_ = req.Body.Close()
	if p.status != http.StatusOK {
		writeStatus(c, p.status)
		return
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", req.Host)
	if err != nil {
		writeStatus(c, http.StatusBadGateway)
		return
	}
	writeStatus(c, http.StatusOK)
	_ = CopyBidirectional(ctx, &bufferedConn{Conn: c, r: br}, dst)
}

func (p *HTTPProxy) forward(ctx context.Context, c net.Conn, br *bufio.Reader, req *http.Request) {
	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", req.URL.Host)
	if err != nil {
		writeStatus(c, http.StatusBadGateway)
		return
	}
	req.Header.Del("Proxy-Authorization")
	req.Header.Del("Proxy-Connection")
	if err := req.Write(dst); err != nil {
		_ = dst.Close()
		return
	}
	_ = CopyBidirectional(ctx, &bufferedConn{Conn: c, r: br}, dst)
}

func writeStatus(w io.Writer, code int) {
	_, _ = fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n\r\n", code, http.StatusText(code))
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
