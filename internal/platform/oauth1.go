package platform

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/die-net/relaypost/internal/model"
)

// sign sets an OAuth 1.0a HMAC-SHA1 Authorization header on req. params are
// the form or query parameters covered by the signature; JSON and multipart
// bodies are not.
func (c *Client) sign(req *http.Request, creds model.Credentials, params map[string]string) {
	oauth := map[string]string{
		"oauth_consumer_key":     creds.Key,
		"oauth_nonce":            c.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_token":            creds.Token,
		"oauth_version":          "1.0",
	}
	oauth["oauth_signature"] = signature(req.Method, req.URL, creds, oauth, params)

	parts := make([]string, 0, len(oauth))
	for _, k := range slices.Sorted(maps.Keys(oauth)) {
		parts = append(parts, fmt.Sprintf("%s=%q", rfc3986(k), rfc3986(oauth[k])))
	}
	req.Header.Set("Authorization", "OAuth "+strings.Join(parts, ", "))
}

func signature(method string, u *url.URL, creds model.Credentials, oauth, params map[string]string) string {
	all := maps.Clone(oauth)
	maps.Copy(all, params)
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			all[k] = vs[0]
		}
	}

	pairs := make([]string, 0, len(all))
	for _, k := range slices.Sorted(maps.Keys(all)) {
		pairs = append(pairs, rfc3986(k)+"="+rfc3986(all[k]))
	}

	baseURL := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.EscapedPath()
	base := strings.ToUpper(method) + "&" + rfc3986(baseURL) + "&" + rfc3986(strings.Join(pairs, "&"))
	key := rfc3986(creds.KeySecret) + "&" + rfc3986(creds.TokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	_, _ = mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// rfc3986 percent-encodes s as OAuth requires.
func rfc3986(s string) string {
	return strings.NewReplacer("+", "%20", "*", "%2A", "%7E", "~").Replace(url.QueryEscape(s))
}
