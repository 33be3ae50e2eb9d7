// Package egress builds the HTTP client one posting attempt uses to reach
// the platform: direct, through an HTTP(S) proxy, or through SOCKS5.
//
// Every proxied transport is private to its attempt. Nothing here touches
// http.DefaultTransport, net.DefaultResolver or any other process default.
package egress

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/die-net/relaypost/internal/dialer"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/probe"
	"github.com/die-net/relaypost/internal/proxyspec"
)

// Kind is the transport variant.
type Kind int

const (
	Direct Kind = iota
	HTTPProxy
	SOCKS5Proxy
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case HTTPProxy:
		return "http_proxy"
	case SOCKS5Proxy:
		return "socks5_proxy"
	default:
		return "unknown"
	}
}

// BuildError is returned when a transport is refused or cannot be built.
type BuildError struct {
	Class   model.ErrorClass
	Message string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("egress: %s: %s", e.Class, e.Message)
}

// Transport is an HTTP client bound to one egress route.
type Transport struct {
	Kind   Kind
	Client *http.Client

	rt     *http.Transport
	shared bool
}

// Close drops idle proxied connections. The shared direct pool is left
// alone.
func (t *Transport) Close() {
	if t.shared {
		return
	}
	t.rt.CloseIdleConnections()
}

// Options tune transports built by a Factory.
type Options struct {
	Dialer          dialer.Config
	RequestTimeout  time.Duration
	IdleConnTimeout time.Duration
}

// Factory builds Transports. Direct transports share one pooled
// http.Transport; proxied ones are built fresh per call.
type Factory struct {
	opts Options

	once   sync.Once
	direct *http.Transport
}

// NewFactory returns a Factory.
func NewFactory(opts Options) *Factory {
	if opts.IdleConnTimeout <= 0 {
		opts.IdleConnTimeout = 90 * time.Second
	}
	return &Factory{opts: opts}
}

// Build returns the transport for spec. pr must be the result of probing
// spec; a proxy whose probe failed is refused with the probe's class.
func (f *Factory) Build(spec proxyspec.Spec, pr probe.Result) (*Transport, error) {
	if spec.IsNone() {
		f.once.Do(func() {
			f.direct = f.newTransport(dialer.NewDirectDialer(f.opts.Dialer))
		})
		return f.wrap(Direct, f.direct, true), nil
	}

	if !pr.OK {
		class := pr.Class
		if class == model.ClassNone {
			class = model.ClassUnknown
		}
		return nil, &BuildError{Class: class, Message: "refusing proxy that failed its probe: " + pr.Message}
	}

	d, err := dialer.New(f.opts.Dialer, spec)
	if err != nil {
		return nil, &BuildError{Class: model.ClassParse, Message: err.Error()}
	}

	switch spec.Kind {
	case proxyspec.KindHTTP:
		return f.wrap(HTTPProxy, f.newTransport(d), false), nil
	case proxyspec.KindSOCKS5:
		return f.wrap(SOCKS5Proxy, f.newTransport(d), false), nil
	default:
		return nil, &BuildError{Class: model.ClassParse, Message: fmt.Sprintf("unsupported proxy kind %v", spec.Kind)}
	}
}

func (f *Factory) wrap(kind Kind, rt *http.Transport, shared bool) *Transport {
	return &Transport{
		Kind:   kind,
		Client: &http.Client{Transport: rt, Timeout: f.opts.RequestTimeout},
		rt:     rt,
		shared: shared,
	}
}

func (f *Factory) newTransport(d dialer.Dialer) *http.Transport {
	t := &http.Transport{
		DialContext:         d.DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     f.opts.IdleConnTimeout,
		TLSHandshakeTimeout: f.opts.Dialer.NegotiationTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ClientSessionCache: tls.NewLRUClientSessionCache(0),
		},
	}

	// With Transport.Proxy set, DialContext connects to the proxy itself and
	// the standard library handles CONNECT and absolute-form requests.
	if up, ok := d.(*dialer.HTTPProxyDialer); ok {
		t.Proxy = http.ProxyURL(up.ProxyURL())
		t.DialContext = up.Direct().DialContext
	}

	return t
}
