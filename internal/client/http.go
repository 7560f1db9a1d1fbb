/*
Package client builds the single HTTP client shared by the source loader and
every liveness worker of a run.

The client owns connection pooling. It skips TLS certificate verification,
because book source hosts are frequently self-signed or misconfigured, and it
stamps every request with the configured User-Agent.
*/
package client

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/williampepple1/booksource-verifier/internal/proxy"
)

var (
	// defaultDialTimeout specifies the default timeout for establishing a new connection.
	defaultDialTimeout = 5 * time.Second
	// defaultKeepAliveTimeout specifies the default keep-alive period for an active network connection.
	defaultKeepAliveTimeout = 60 * time.Second
	// defaultIdleConnTimeout is the maximum amount of time an idle connection will remain idle.
	defaultIdleConnTimeout = 90 * time.Second
	// defaultMaxIdleConns controls the maximum number of idle connections across all hosts.
	defaultMaxIdleConns = 100
	// defaultMaxIdleConnsPerHost keeps a few warm connections for sources sharing a host.
	defaultMaxIdleConnsPerHost = 8
	// defaultRequestTimeout specifies the default timeout for a complete HTTP request.
	defaultRequestTimeout = 5 * time.Second
)

// Config holds configuration parameters for the shared HTTP client.
// A zero-value Config results in default settings.
type Config struct {
	// UserAgent is sent with every request when non-empty.
	UserAgent string
	// RequestTimeout bounds a whole request, redirects and body included.
	RequestTimeout time.Duration
	// DialTimeout is the maximum duration for establishing a new connection.
	DialTimeout time.Duration
	// KeepAliveTimeout specifies the keep-alive period for an active network connection.
	KeepAliveTimeout time.Duration
	// IdleConnTimeout is how long an idle keep-alive connection is kept.
	IdleConnTimeout time.Duration
	// MaxIdleConns controls the maximum number of idle connections across all hosts.
	MaxIdleConns int
	// MaxIdleConnsPerHost is the maximum number of idle connections to keep per host.
	MaxIdleConnsPerHost int
	// Proxies, when set and enabled, routes requests through the configured proxies.
	Proxies *proxy.Manager
}

// New creates a pooled HTTP client from config. A nil config uses defaults.
func New(config *Config) *http.Client {
	if config == nil {
		config = &Config{}
	}
	c := *config
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	// a dial never needs longer than the whole request
	if c.DialTimeout > c.RequestTimeout {
		c.DialTimeout = c.RequestTimeout
	}
	if c.KeepAliveTimeout <= 0 {
		c.KeepAliveTimeout = defaultKeepAliveTimeout
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConnsPerHost <= 0 {
		c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   c.DialTimeout,
			KeepAlive: c.KeepAliveTimeout,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // book source hosts are often self-signed
		},
		MaxIdleConns:          c.MaxIdleConns,
		MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
		IdleConnTimeout:       c.IdleConnTimeout,
		TLSHandshakeTimeout:   c.RequestTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	if c.Proxies != nil {
		c.Proxies.ApplyToTransport(transport)
	}

	var rt http.RoundTripper = transport
	if c.UserAgent != "" {
		rt = &userAgentTransport{base: transport, userAgent: c.UserAgent}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   c.RequestTimeout,
	}
}

// userAgentTransport sets the User-Agent header on outgoing requests
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

// RoundTrip implements http.RoundTripper
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// CloseIdleConnections implements the optional interface used by http.Client
func (t *userAgentTransport) CloseIdleConnections() {
	if ci, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}
