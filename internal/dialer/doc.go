// Package dialer opens outbound TCP connections either directly or through
// the proxy a proxyspec.Spec describes (HTTP CONNECT or SOCKS5).
//
// Dialers implement DialContext and are plugged into http.Transport by the
// egress package and used bare by the connectivity probe.
package dialer
