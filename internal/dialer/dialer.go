package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/die-net/relaypost/internal/proxyspec"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New constructs the outbound Dialer for spec. None yields a direct dialer.
func New(cfg Config, spec proxyspec.Spec) (Dialer, error) {
	switch spec.Kind {
	case proxyspec.KindNone:
		return NewDirectDialer(cfg), nil
	case proxyspec.KindHTTP:
		if spec.URL == nil {
			return nil, errors.New("http proxy dialer: missing proxy url")
		}
		return NewHTTPProxyDialer(cfg, spec.URL)
	case proxyspec.KindSOCKS5:
		return NewSOCKS5ProxyDialer(cfg, spec.Address(), spec.Auth)
	default:
		return nil, fmt.Errorf("unsupported proxy kind: %v", spec.Kind)
	}
}

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	case "socks5", "socks5h":
		return "1080"
	default:
		return ""
	}
}
