package proxy

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"

	"github.com/williampepple1/booksource-verifier/internal/config"
)

// Manager handles proxy configuration and rotation
type Manager struct {
	Config  *config.ProxyConfig
	proxies []*url.URL
}

// NewManager parses the configured proxy list
func NewManager(config *config.ProxyConfig) (*Manager, error) {
	m := &Manager{Config: config}
	if !config.Enabled {
		return m, nil
	}

	for _, raw := range config.List {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		if proxyURL.Scheme == "" || proxyURL.Host == "" {
			return nil, fmt.Errorf("proxy %q must be an absolute URL", raw)
		}

		// Add authentication if provided
		if config.Auth.Username != "" && config.Auth.Password != "" {
			proxyURL.User = url.UserPassword(config.Auth.Username, config.Auth.Password)
		}
		m.proxies = append(m.proxies, proxyURL)
	}
	return m, nil
}

// Enabled reports whether any proxy will be used
func (m *Manager) Enabled() bool {
	return len(m.proxies) > 0
}

// Pick returns the proxy for one request. With rotation enabled a random
// entry is chosen per call; it is safe for concurrent use.
func (m *Manager) Pick() *url.URL {
	if len(m.proxies) == 0 {
		return nil
	}
	if m.Config.Rotate && len(m.proxies) > 1 {
		return m.proxies[rand.IntN(len(m.proxies))]
	}
	return m.proxies[0]
}

// ApplyToTransport installs the proxy selection on an HTTP transport
func (m *Manager) ApplyToTransport(transport *http.Transport) {
	if !m.Enabled() {
		return
	}
	transport.Proxy = func(*http.Request) (*url.URL, error) {
		return m.Pick(), nil
	}
}
