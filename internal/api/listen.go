package api

import (
	"context"
	"fmt"
	"net"
)

// Listen opens a TCP listener whose accepted connections carry ka.
func Listen(ctx context.Context, addr string, ka net.KeepAliveConfig) (net.Listener, error) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &keepAliveListener{Listener: ln, ka: ka}, nil
}

type keepAliveListener struct {
	net.Listener
	ka net.KeepAliveConfig
}

func (l *keepAliveListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(l.ka)
	}
	return c, nil
}
