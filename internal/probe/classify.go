package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/die-net/relaypost/internal/dialer"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/proxyspec"
	"github.com/die-net/relaypost/internal/socks5"
)

// Classify maps a dial error to an error class. Authentication failures win
// over everything else, then timeouts, then unreachable destinations.
func Classify(err error) model.ErrorClass {
	switch {
	case err == nil:
		return model.ClassNone
	case isAuth(err):
		return model.ClassAuth
	case IsTimeout(err):
		return model.ClassTimeout
	case isUnreachable(err):
		return model.ClassConnect
	default:
		return model.ClassUnknown
	}
}

// IsTimeout reports whether err is a deadline expiry of any kind.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isAuth(err error) bool {
	if errors.Is(err, socks5.ErrAuthRejected) ||
		errors.Is(err, socks5.ErrAuthRequired) ||
		errors.Is(err, socks5.ErrNoAcceptableMethods) {
		return true
	}
	var se *dialer.ConnectStatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusProxyAuthRequired
}

func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var re *socks5.ReplyError
	if errors.As(err, &re) {
		return re.Unreachable()
	}

	var se *dialer.ConnectStatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	return isConnRefusedOrUnreachable(err)
}

func describe(class model.ErrorClass, spec proxyspec.Spec, target string, err error) string {
	switch class {
	case model.ClassAuth:
		return fmt.Sprintf("proxy %s rejected authentication: %v", spec, err)
	case model.ClassTimeout:
		return fmt.Sprintf("proxy %s did not reach %s in time: %v", spec, target, err)
	case model.ClassConnect:
		return fmt.Sprintf("proxy %s could not connect to %s: %v", spec, target, err)
	default:
		return err.Error()
	}
}
