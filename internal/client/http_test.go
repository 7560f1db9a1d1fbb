package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/booksource-verifier/internal/config"
	"github.com/williampepple1/booksource-verifier/internal/proxy"
)

func baseTransport(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	switch rt := c.Transport.(type) {
	case *http.Transport:
		return rt
	case *userAgentTransport:
		tr, ok := rt.base.(*http.Transport)
		require.True(t, ok, "expected *http.Transport base, got %T", rt.base)
		return tr
	default:
		t.Fatalf("unexpected transport %T", c.Transport)
		return nil
	}
}

func TestNewFillsDefaults(t *testing.T) {
	c := New(&Config{})
	tr := baseTransport(t, c)

	assert.Equal(t, defaultRequestTimeout, c.Timeout)
	assert.Equal(t, defaultMaxIdleConns, tr.MaxIdleConns)
	assert.Equal(t, defaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)

	assert.NotNil(t, New(nil))
}

func TestNewSetsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
	}))
	defer srv.Close()

	c := New(&Config{UserAgent: "verifier-test/1.0", RequestTimeout: time.Second})
	resp, err := c.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "verifier-test/1.0", gotUA)
}

func TestNewSkipsCertificateVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := New(&Config{RequestTimeout: time.Second}).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewAppliesProxy(t *testing.T) {
	m, err := proxy.NewManager(&config.ProxyConfig{Enabled: true, List: []string{"http://proxy.local:3128"}})
	require.NoError(t, err)

	tr := baseTransport(t, New(&Config{Proxies: m}))
	got, err := tr.Proxy(&http.Request{})
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:3128", got.Host)
}
