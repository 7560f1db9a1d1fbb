package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/booksource-verifier/internal/config"
)

func TestManagerDisabled(t *testing.T) {
	m, err := NewManager(&config.ProxyConfig{List: []string{"http://p1:8080"}})
	require.NoError(t, err)
	assert.False(t, m.Enabled())
	assert.Nil(t, m.Pick())

	tr := &http.Transport{}
	m.ApplyToTransport(tr)
	assert.Nil(t, tr.Proxy)
}

func TestManagerAuthAndPick(t *testing.T) {
	cfg := &config.ProxyConfig{Enabled: true, List: []string{"http://p1:8080", "http://p2:8080"}}
	cfg.Auth.Username = "user"
	cfg.Auth.Password = "secret"

	m, err := NewManager(cfg)
	require.NoError(t, err)
	require.True(t, m.Enabled())

	// without rotation the first proxy is always used
	for range 5 {
		assert.Equal(t, "p1:8080", m.Pick().Host)
	}
	assert.Equal(t, "user", m.Pick().User.Username())

	cfg.Rotate = true
	seen := map[string]bool{}
	for range 200 {
		seen[m.Pick().Host] = true
	}
	assert.Len(t, seen, 2)

	tr := &http.Transport{}
	m.ApplyToTransport(tr)
	require.NotNil(t, tr.Proxy)
	got, err := tr.Proxy(&http.Request{})
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestManagerRejectsRelativeProxy(t *testing.T) {
	_, err := NewManager(&config.ProxyConfig{Enabled: true, List: []string{"p1:8080"}})
	assert.Error(t, err)
}
