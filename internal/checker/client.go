package checker

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// HostHeaders are extra request headers for hosts matching a suffix.
type HostHeaders struct {
	// Cookie is a raw cookie string such as "name=value; other=x".
	Cookie string

	// Headers are set on every request to a matching host.
	Headers map[string]string
}

type clientConfig struct {
	timeout     time.Duration
	proxyAddr   string
	hostHeaders map[string]HostHeaders
	tlsConfig   *tls.Config
}

// ClientOption configures NewHTTPClient.
type ClientOption func(*clientConfig)

// WithProxy routes all requests through a SOCKS5 proxy at addr ("host:port").
func WithProxy(addr string) ClientOption {
	return func(c *clientConfig) {
		c.proxyAddr = addr
	}
}

// WithHostHeaders injects cookies and headers into requests whose host ends
// with one of the map keys. The longest matching suffix wins.
func WithHostHeaders(h map[string]HostHeaders) ClientOption {
	return func(c *clientConfig) {
		c.hostHeaders = h
	}
}

// WithTLSConfig sets the TLS configuration of the transport.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *clientConfig) {
		c.tlsConfig = cfg
	}
}

// NewHTTPClient builds the client used for external checks. Timeout bounds
// each individual request. Redirects are never followed by the client;
// the checker follows them itself.
func NewHTTPClient(timeout time.Duration, opts ...ClientOption) (*http.Client, error) {
	cfg := &clientConfig{timeout: timeout}
	for _, opt := range opts {
		opt(cfg)
	}

	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	dial := dialer.DialContext

	if cfg.proxyAddr != "" {
		if !isValidProxyAddress(cfg.proxyAddr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, cfg.proxyAddr)
		}
		socks, err := proxy.SOCKS5("tcp", cfg.proxyAddr, nil, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		cd, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("SOCKS5 dialer for %s does not support contexts", cfg.proxyAddr)
		}
		dial = cd.DialContext
	}

	transport := &http.Transport{
		DialContext:           dial,
		TLSClientConfig:       cfg.tlsConfig,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	if cfg.proxyAddr == "" {
		transport.Proxy = http.ProxyFromEnvironment
	}

	var rt http.RoundTripper = transport
	if len(cfg.hostHeaders) > 0 {
		rt = newHeaderInjectingTransport(transport, cfg.hostHeaders)
	}

	return &http.Client{
		Transport:     rt,
		Timeout:       timeout,
		CheckRedirect: noRedirect,
	}, nil
}

// noRedirect hands every 3xx response back to the caller.
func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

// isValidProxyAddress checks for "host:port" with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport adds per-host cookies and headers to requests.
type headerInjectingTransport struct {
	base     http.RoundTripper
	suffixes []string
	headers  map[string]HostHeaders
}

func newHeaderInjectingTransport(base http.RoundTripper, headers map[string]HostHeaders) *headerInjectingTransport {
	t := &headerInjectingTransport{base: base, headers: make(map[string]HostHeaders, len(headers))}
	for suffix, h := range headers {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		t.suffixes = append(t.suffixes, suffix)
		t.headers[suffix] = h
	}
	sort.Slice(t.suffixes, func(i, j int) bool {
		return len(t.suffixes[i]) > len(t.suffixes[j])
	})
	return t
}

// match returns the configuration for host, if any.
func (t *headerInjectingTransport) match(host string) (HostHeaders, bool) {
	host = strings.ToLower(host)
	for _, s := range t.suffixes {
		if strings.HasSuffix(host, s) {
			return t.headers[s], true
		}
	}
	return HostHeaders{}, false
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	h, ok := t.match(req.URL.Hostname())
	if !ok {
		return t.base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	if h.Cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+h.Cookie)
		} else {
			clone.Header.Set("Cookie", h.Cookie)
		}
	}
	for key, value := range h.Headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
