package audit

import (
	"slices"
	"strings"
	"unicode/utf8"
)

const maskPrefix = "***"

// Mask hides a secret. Secrets of up to four characters become "***";
// longer ones keep their last four characters after the "***" prefix. It is
// the only masking rule used anywhere in the audit trail.
func Mask(secret string) string {
	if utf8.RuneCountInString(secret) <= 4 {
		return maskPrefix
	}
	r := []rune(secret)
	return maskPrefix + string(r[len(r)-4:])
}

// MaskProxyURL masks the password in a proxy URL's userinfo and leaves the
// rest of raw untouched. key is the descriptor key raw came from: socks5
// userinfo splits at the last colon, http and https at the first, the same
// way the proxy parser reads them.
func MaskProxyURL(key, raw string) string {
	from, to, ok := passwordBounds(raw, key == "socks5")
	if !ok {
		return raw
	}
	return raw[:from] + Mask(raw[from:to]) + raw[to:]
}

// passwordBounds locates the userinfo password in raw. The authority ends at
// the first '/', '?' or '#' and userinfo ends at its last '@'. The password
// starts after the first ':' of the userinfo, or the last one if lastColon.
func passwordBounds(raw string, lastColon bool) (from, to int, ok bool) {
	start := 0
	if i := strings.Index(raw, "://"); i >= 0 {
		start = i + 3
	}
	end := len(raw)
	if i := strings.IndexAny(raw[start:], "/?#"); i >= 0 {
		end = start + i
	}
	at := strings.LastIndex(raw[start:end], "@")
	if at < 0 {
		return 0, 0, false
	}
	userinfo := raw[start : start+at]
	colon := strings.Index(userinfo, ":")
	if lastColon {
		colon = strings.LastIndex(userinfo, ":")
	}
	if colon < 0 {
		return 0, 0, false
	}
	return start + colon + 1, start + at, true
}

// Scrub replaces every occurrence of each secret in msg with its masked
// form in a single pass, preferring the longest match. Empty secrets are
// skipped.
func Scrub(msg string, secrets ...string) string {
	sorted := slices.Clone(secrets)
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })

	var pairs []string
	for _, s := range sorted {
		if s != "" {
			pairs = append(pairs, s, Mask(s))
		}
	}
	if len(pairs) == 0 {
		return msg
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}
