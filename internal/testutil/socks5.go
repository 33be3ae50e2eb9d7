package testutil

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	txsocks5 "github.com/txthinking/socks5"

	"github.com/die-net/relaypost/internal/socks5"
)

// SOCKS5Proxy is a loopback SOCKS5 server. With Reply zero it relays CONNECT
// requests to their destination; any other value is sent back as the CONNECT
// reply code.
type SOCKS5Proxy struct {
	Addr string

	auth    *socks5.Auth
	reply   byte
	accepts atomic.Int64
	targets chan string
}

// StartSOCKS5Proxy starts a fake SOCKS5 proxy. auth, when set, is required
// from clients.
func StartSOCKS5Proxy(t *testing.T, ctx context.Context, auth *socks5.Auth, reply byte) *SOCKS5Proxy {
	t.Helper()

	p := &SOCKS5Proxy{auth: auth, reply: reply, targets: make(chan string, 64)}
	ln := StartServer(t, ctx, func(c net.Conn) {
		p.accepts.Add(1)
		p.serve(ctx, c)
	})
	p.Addr = ln.Addr().String()
	return p
}

// Accepts reports how many client connections the proxy has seen.
func (p *SOCKS5Proxy) Accepts() int64 {
	return p.accepts.Load()
}

// Targets returns the CONNECT destinations requested so far.
func (p *SOCKS5Proxy) Targets() []string {
	var out []string
	for {
		select {
		case t := <-p.targets:
			out = append(out, t)
		default:
			return out
		}
	}
}

func (p *SOCKS5Proxy) serve(ctx context.Context, c net.Conn) {
	if err := socks5.ServerNegotiate(c, p.auth); err != nil {
		return
	}
	req, err := socks5.ServerReadRequest(c)
	if err != nil {
		return
	}
	select {
	case p.targets <- req.Address():
	default:
	}

	if req.Cmd != socks5.CmdConnect {
		socks5.WriteFailureReply(c, txsocks5.RepCommandNotSupported)
		return
	}
	if p.reply != 0 {
		socks5.WriteFailureReply(c, p.reply)
		return
	}

	d := net.Dialer{}
	dst, err := d.DialContext(ctx, "tcp", req.Address())
	if err != nil {
		socks5.WriteFailureReply(c, txsocks5.RepHostUnreachable)
		return
	}
	if err := socks5.WriteSuccessReply(c, dst.LocalAddr()); err != nil {
		_ = dst.Close()
		return
	}
	_ = CopyBidirectional(ctx, c, dst)
}
