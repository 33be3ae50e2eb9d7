package proxyspec

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrInvalid is wrapped by every error Parse returns.
var ErrInvalid = errors.New("invalid proxy config")

// Parse validates a raw proxy descriptor.
//
// A nil or empty map (or one whose values are all empty) yields None. When a
// socks5 entry is present it wins over http/https; between the two HTTP keys,
// https is preferred.
func Parse(raw map[string]string) (Spec, error) {
	if isEmpty(raw) {
		return None, nil
	}

	if v := strings.TrimSpace(raw["socks5"]); v != "" {
		return parseSOCKS5(v)
	}
	if v := strings.TrimSpace(raw["https"]); v != "" {
		return parseHTTP(v)
	}
	if v := strings.TrimSpace(raw["http"]); v != "" {
		return parseHTTP(v)
	}

	return None, fmt.Errorf("%w: expected one of socks5, https, http", ErrInvalid)
}

func isEmpty(raw map[string]string) bool {
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseHTTP(raw string) (Spec, error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return None, fmt.Errorf("%w: http proxy url: %v", ErrInvalid, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return None, fmt.Errorf("%w: http proxy url scheme %q", ErrInvalid, u.Scheme)
	}
	if u.Hostname() == "" {
		return None, fmt.Errorf("%w: http proxy url: missing host", ErrInvalid)
	}
	if u.Path != "" && u.Path != "/" {
		return None, fmt.Errorf("%w: http proxy url: path should be empty", ErrInvalid)
	}

	return Spec{Kind: KindHTTP, URL: u}, nil
}

func parseSOCKS5(raw string) (Spec, error) {
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return None, fmt.Errorf("%w: socks5 url: %v", ErrInvalid, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
	default:
		return None, fmt.Errorf("%w: socks5 url scheme %q", ErrInvalid, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return None, fmt.Errorf("%w: socks5 url: missing host", ErrInvalid)
	}
	port, err := strconv.ParseUint(u.Port(), 10, 16)
	if err != nil || port == 0 {
		return None, fmt.Errorf("%w: socks5 url: missing or invalid port %q", ErrInvalid, u.Port())
	}

	spec := Spec{Kind: KindSOCKS5, Host: host, Port: uint16(port)}

	if userinfo, ok := rawUserinfo(raw); ok {
		auth, err := splitUserinfo(userinfo)
		if err != nil {
			return None, err
		}
		spec.Auth = auth
	}

	return spec, nil
}

// rawUserinfo returns the undecoded userinfo segment of raw. The authority
// ends at the first '/', '?' or '#', and userinfo ends at the last '@' within
// it, matching net/url.
func rawUserinfo(raw string) (string, bool) {
	rest := raw[strings.Index(raw, "://")+3:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return "", false
	}
	return rest[:at], true
}

// splitUserinfo splits on the last colon: usernames copied from vendor
// dashboards routinely contain colons, passwords must percent-encode theirs.
func splitUserinfo(userinfo string) (*Auth, error) {
	user, pass := userinfo, ""
	if i := strings.LastIndex(userinfo, ":"); i >= 0 {
		user, pass = userinfo[:i], userinfo[i+1:]
	}

	username, err := url.PathUnescape(user)
	if err != nil {
		return nil, fmt.Errorf("%w: socks5 username: %v", ErrInvalid, err)
	}
	password, err := url.PathUnescape(pass)
	if err != nil {
		return nil, fmt.Errorf("%w: socks5 password: %v", ErrInvalid, err)
	}

	return &Auth{Username: username, Password: password}, nil
}
