// Package audit builds the redacted request and response records returned
// with every posting attempt, and optionally persists them to SQLite.
package audit

import (
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/die-net/relaypost/internal/model"
)

// Credentials is the redacted form of model.Credentials. Consumer key and
// access token are identifiers and stay readable; both secrets are masked.
type Credentials struct {
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret"`
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}

// Record is the redacted request audit. ProxySettings is nil when the
// attempt had no proxy.
type Record struct {
	Credentials   Credentials       `json:"credentials_redacted"`
	Text          string            `json:"text"`
	HasImage      bool              `json:"has_image"`
	ProxySettings map[string]string `json:"proxy_settings"`
}

// BuildRequest never fails; missing fields come out empty.
func BuildRequest(a model.Attempt) Record {
	return Record{
		Credentials: Credentials{
			APIKey:       a.Credentials.Key,
			APISecret:    Mask(a.Credentials.KeySecret),
			AccessToken:  a.Credentials.Token,
			AccessSecret: Mask(a.Credentials.TokenSecret),
		},
		Text:          a.Text,
		HasImage:      a.HasImage(),
		ProxySettings: RedactProxy(a.Proxy),
	}
}

// RedactProxy copies a raw proxy descriptor with every URL password masked.
// A nil or blank descriptor yields nil.
func RedactProxy(raw map[string]string) map[string]string {
	blank := true
	for _, v := range raw {
		if strings.TrimSpace(v) != "" {
			blank = false
			break
		}
	}
	if blank {
		return nil
	}

	out := maps.Clone(raw)
	for k, v := range out {
		out[k] = MaskProxyURL(k, v)
	}
	return out
}

// Post types recorded in response audits.
const (
	PostTextOnly  = "text_only"
	PostWithMedia = "with_media"
)

// BuildResponse describes a successful post.
func BuildResponse(postID string, mediaIDs []string) map[string]any {
	m := map[string]any{
		"tweet_id":  postID,
		"post_type": PostTextOnly,
	}
	if len(mediaIDs) > 0 {
		m["post_type"] = PostWithMedia
		m["media_ids"] = mediaIDs
	}
	return m
}

// BuildFailure keeps the original upstream message for a failed stage, even
// when the surfaced message was replaced by a proxy diagnostic.
func BuildFailure(stage, upstreamMessage string) map[string]any {
	return map[string]any{
		"failed_stage":   stage,
		"upstream_error": upstreamMessage,
	}
}

// RedactFields returns a copy of an inbound request body that is safe to echo
// back: secrets masked, image reduced to its size, proxy URLs redacted.
// Unknown fields are dropped.
func RedactFields(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		switch k {
		case "api_key", "access_token", "text":
			out[k] = v
		case "api_secret", "access_secret":
			out[k] = Mask(fmt.Sprint(v))
		case "image":
			if s, ok := v.(string); ok {
				out[k] = fmt.Sprintf("<%d bytes base64>", len(s))
			}
		case "proxy":
			out[k] = redactProxyAny(v)
		}
	}
	return out
}

func redactProxyAny(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	raw := make(map[string]string, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			raw[k] = s
		}
	}
	return RedactProxy(raw)
}

// Secrets lists every secret carried by a, for Scrub. Proxy passwords are
// listed raw and percent-decoded, split at both the first and the last colon
// of the userinfo.
func Secrets(a model.Attempt) []string {
	out := []string{a.Credentials.KeySecret, a.Credentials.TokenSecret}
	for _, v := range a.Proxy {
		from, to, ok := passwordBounds(v, false)
		if !ok {
			continue
		}
		pw := v[from:to]
		cands := []string{pw}
		if i := strings.LastIndex(pw, ":"); i >= 0 {
			cands = append(cands, pw[i+1:])
		}
		for _, c := range cands {
			out = append(out, c)
			if dec, err := url.PathUnescape(c); err == nil && dec != c {
				out = append(out, dec)
			}
		}
	}
	return out
}
