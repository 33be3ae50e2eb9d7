package post

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/die-net/relaypost/internal/dialer"
	"github.com/die-net/relaypost/internal/egress"
	"github.com/die-net/relaypost/internal/model"
	"github.com/die-net/relaypost/internal/platform"
	"github.com/die-net/relaypost/internal/probe"
	"github.com/die-net/relaypost/internal/socks5"
	"github.com/die-net/relaypost/internal/testutil"
)

func TestRunThroughSOCKS5(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"media_id_string":"77"}`)
	})
	mux.HandleFunc("/tweets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"id":"123"}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)

	up := testutil.StartSOCKS5Proxy(t, ctx, &socks5.Auth{Username: "user:name", Password: "pass"}, 0)

	dcfg := dialer.Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second}
	o := New(
		probe.New(dcfg, false),
		egress.NewFactory(egress.Options{Dialer: dcfg, RequestTimeout: 5 * time.Second}),
		platform.New(srv.URL+"/upload", srv.URL+"/tweets"),
		Options{Domain: "x.example", APIHost: host, APIPort: uint16(port), ProbeTimeout: 2 * time.Second},
	)

	out := o.Run(ctx, model.Attempt{
		Credentials: model.Credentials{Key: "ck", KeySecret: "cs", Token: "at", TokenSecret: "as"},
		Text:        "hello",
		Image:       []byte("PNG"),
		Proxy:       map[string]string{"socks5": "socks5://user:name:pass@" + up.Addr},
	})

	require.True(t, out.OK(), "%+v", out.Failure)
	assert.Equal(t, "https://x.example/user/status/123", out.Success.PostURL)
	assert.Equal(t, []string{"77"}, out.Success.ResponseAudit["media_ids"])
	// Two probes plus at least one tunnel for the platform calls.
	assert.GreaterOrEqual(t, up.Accepts(), int64(3))
	for _, target := range up.Targets() {
		assert.Equal(t, srv.Listener.Addr().String(), target)
	}
}

func TestRunProxyDown(t *testing.T) {
	t.Parallel()

	dcfg := dialer.Config{DialTimeout: time.Second, NegotiationTimeout: time.Second}
	pub := &fakePublisher{postID: "1"}
	o := New(
		probe.New(dcfg, false),
		egress.NewFactory(egress.Options{Dialer: dcfg}),
		pub,
		Options{APIHost: "127.0.0.1", APIPort: 443, ProbeTimeout: time.Second},
	)

	out := o.Run(context.Background(), model.Attempt{
		Credentials: model.Credentials{Key: "ck", KeySecret: "cs", Token: "at", TokenSecret: "as"},
		Text:        "hello",
		Proxy:       map[string]string{"socks5": "socks5://alice:p@ss@" + testutil.ClosedPort(t)},
	})

	require.False(t, out.OK())
	assert.Equal(t, model.ClassConnect, out.Failure.Class)
	assert.NotContains(t, out.Failure.Message, "p@ss")
	assert.Equal(t, 0, pub.uploads+pub.posts)
}
