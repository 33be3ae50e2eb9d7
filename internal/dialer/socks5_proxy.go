package dialer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/die-net/relaypost/internal/proxyspec"
	"github.com/die-net/relaypost/internal/socks5"
)

// SOCKS5ProxyDialer dials outbound TCP connections via a SOCKS5 proxy.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      *socks5.Auth
	direct    Dialer
}

// NewSOCKS5ProxyDialer constructs a SOCKS5 dialer. A nil auth offers only the
// no-auth method.
func NewSOCKS5ProxyDialer(cfg Config, proxyAddr string, auth *proxyspec.Auth) (*SOCKS5ProxyDialer, error) {
	if proxyAddr == "" {
		return nil, fmt.Errorf("socks5 proxy dialer: missing proxy address")
	}

	var a *socks5.Auth
	if auth != nil {
		a = &socks5.Auth{Username: auth.Username, Password: auth.Password}
	}

	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		auth:      a,
		direct:    NewDirectDialer(cfg),
	}, nil
}

// ProxyAddr returns the proxy host:port.
func (f *SOCKS5ProxyDialer) ProxyAddr() string {
	return f.proxyAddr
}

// DialContext connects to the proxy and performs the SOCKS5 handshake for
// address. The returned conn carries the tunneled stream.
func (f *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	c, err := f.direct.DialContext(ctx, "tcp", f.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(f.cfg.NegotiationTimeout))
	}

	if err := socks5.ClientDial(c, f.auth, address); err != nil {
		_ = c.Close()
		return nil, ctxErr(ctx, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, err))
	}

	if f.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}
	if !stop() {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy: %w", ctx.Err())
	}
	return c, nil
}
