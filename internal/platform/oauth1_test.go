package platform

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/die-net/relaypost/internal/model"
)

// Worked example from the platform's OAuth 1.0a signing guide.
func TestSignatureKnownVector(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodPost, "https://api.twitter.com/1.1/statuses/update.json?include_entities=true", nil)
	require.NoError(t, err)

	creds := model.Credentials{
		Key:         "xvz1evFS4wEEPTGEFPHBog",
		KeySecret:   "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw",
		Token:       "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		TokenSecret: "LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE",
	}
	oauth := map[string]string{
		"oauth_consumer_key":     creds.Key,
		"oauth_nonce":            "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1318622958",
		"oauth_token":            creds.Token,
		"oauth_version":          "1.0",
	}
	params := map[string]string{"status": "Hello Ladies + Gentlemen, a signed OAuth request!"}

	assert.Equal(t, "hCtSmYh+iHYCEqBWrE7C7hYmtUk=", signature(req.Method, req.URL, creds, oauth, params))
}

func TestSignHeader(t *testing.T) {
	t.Parallel()

	c := New("", "")
	c.now = func() time.Time { return time.Unix(1318622958, 0) }
	c.nonce = func() string { return "abc" }

	req, err := http.NewRequest(http.MethodPost, "https://api.example/2/tweets", nil)
	require.NoError(t, err)
	c.sign(req, model.Credentials{Key: "ck", KeySecret: "cs", Token: "at", TokenSecret: "as"}, nil)

	h := req.Header.Get("Authorization")
	require.True(t, strings.HasPrefix(h, "OAuth "))
	for _, want := range []string{
		`oauth_consumer_key="ck"`,
		`oauth_nonce="abc"`,
		`oauth_signature_method="HMAC-SHA1"`,
		`oauth_timestamp="1318622958"`,
		`oauth_token="at"`,
		`oauth_version="1.0"`,
		`oauth_signature="`,
	} {
		assert.Contains(t, h, want)
	}
}
