package socks5

import (
	"errors"
	"fmt"

	txsocks5 "github.com/txthinking/socks5"
)

var (
	// ErrAuthRejected means the proxy answered the RFC 1929 exchange with a
	// failure status.
	ErrAuthRejected = errors.New("socks5: username/password rejected")

	// ErrAuthRequired means the proxy selected username/password but no
	// credentials were configured.
	ErrAuthRequired = errors.New("socks5: proxy requires username/password")

	// ErrNoAcceptableMethods means the proxy refused every offered method.
	ErrNoAcceptableMethods = errors.New("socks5: no acceptable authentication methods")
)

// ReplyError is a non-success CONNECT reply.
type ReplyError struct {
	Code byte
}

func (e *ReplyError) Error() string {
	return "socks5: connect failed: " + ReplyText(e.Code)
}

// Unreachable reports whether the proxy could not reach the destination:
// network unreachable, host unreachable, or connection refused.
func (e *ReplyError) Unreachable() bool {
	switch e.Code {
	case txsocks5.RepNetworkUnreachable, txsocks5.RepHostUnreachable, txsocks5.RepConnectionRefused:
		return true
	default:
		return false
	}
}

// ReplyText maps RFC 1928 REP codes to text.
func ReplyText(rep byte) string {
	switch rep {
	case txsocks5.RepSuccess:
		return "succeeded"
	case txsocks5.RepServerFailure:
		return "general SOCKS server failure"
	case txsocks5.RepNotAllowed:
		return "connection not allowed by ruleset"
	case txsocks5.RepNetworkUnreachable:
		return "network unreachable"
	case txsocks5.RepHostUnreachable:
		return "host unreachable"
	case txsocks5.RepConnectionRefused:
		return "connection refused"
	case txsocks5.RepTTLExpired:
		return "TTL expired"
	case txsocks5.RepCommandNotSupported:
		return "command not supported"
	case txsocks5.RepAddressNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("unknown reply code 0x%02x", rep)
	}
}
