package proxyspec

import (
	"net"
	"net/url"
	"strconv"
)

// Kind identifies the egress route a Spec describes.
type Kind int

const (
	KindNone Kind = iota
	KindHTTP
	KindSOCKS5
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindHTTP:
		return "http"
	case KindSOCKS5:
		return "socks5"
	default:
		return "unknown"
	}
}

// Auth is optional proxy authentication. Both fields are percent-decoded.
type Auth struct {
	Username string
	Password string
}

// Spec is an immutable, parsed proxy description.
//
// For KindHTTP only URL is set; it is used for both plain and TLS upstream
// calls. For KindSOCKS5, Host and Port are always set and Auth is non-nil
// only when the descriptor carried userinfo.
type Spec struct {
	Kind Kind
	URL  *url.URL
	Host string
	Port uint16
	Auth *Auth
}

// None is the zero Spec: connect directly.
var None = Spec{}

// IsNone reports whether s routes directly.
func (s Spec) IsNone() bool {
	return s.Kind == KindNone
}

// Address returns the proxy host:port, or "" for KindNone.
func (s Spec) Address() string {
	switch s.Kind {
	case KindHTTP:
		return s.URL.Host
	case KindSOCKS5:
		return net.JoinHostPort(s.Host, strconv.Itoa(int(s.Port)))
	default:
		return ""
	}
}

// HasAuth reports whether the proxy carries credentials.
func (s Spec) HasAuth() bool {
	switch s.Kind {
	case KindHTTP:
		return s.URL.User != nil && s.URL.User.Username() != ""
	case KindSOCKS5:
		return s.Auth != nil
	default:
		return false
	}
}

// String describes s without credentials, for logs.
func (s Spec) String() string {
	if s.IsNone() {
		return "direct"
	}
	return s.Kind.String() + "://" + s.Address()
}
