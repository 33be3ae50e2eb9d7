package dialer

import (
	"net"
	"time"
)

// Config tunes outbound dials.
//
// NegotiationTimeout bounds the proxy handshake (TLS to an https proxy,
// CONNECT, SOCKS5 method/auth/request) once the TCP connection is up.
type Config struct {
	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig
}
