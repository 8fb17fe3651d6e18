// Package network builds the HTTP client used for API traffic, with optional
// HTTP(S) or SOCKS5 proxying.
package network

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/muratoffalex/discordctl/internal/config"
	"github.com/muratoffalex/discordctl/internal/logger"
	"golang.org/x/net/proxy"
)

const LogProxyNotConfigured = "Proxy not configured, using direct connection"

type ClientConfig struct {
	ProxyURL            string
	NoProxy             []string
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
}

func NewClientConfig(cfg config.HTTPConfig) ClientConfig {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return ClientConfig{
		ProxyURL:            cfg.GetProxy(),
		NoProxy:             cfg.GetNoProxy(),
		Timeout:             timeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func NewClient(cfg ClientConfig, log logger.Logger) (*http.Client, error) {
	transport := &http.Transport{
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
		DialContext:           newDialer().DialContext,
	}

	if cfg.ProxyURL != "" {
		if err := configureProxy(transport, cfg.ProxyURL, cfg.NoProxy, log); err != nil {
			return nil, err
		}
	} else {
		log.Info(LogProxyNotConfigured)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

func configureProxy(transport *http.Transport, rawURL string, noProxy []string, log logger.Logger) error {
	proxyURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse proxy URL: %w", err)
	}

	switch proxyURL.Scheme {
	case "socks5", "socks5h":
		dial, err := socks5DialContext(proxyURL, noProxy)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = dial
	case "http", "https":
		transport.Proxy = proxyFunc(proxyURL, noProxy)
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", proxyURL.Scheme)
	}

	log.Info(fmt.Sprintf("Proxy configured: %s, no_proxy: %v", proxyURL.Redacted(), noProxy))
	return nil
}

func proxyFunc(proxyURL *url.URL, noProxy []string) func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		if bypass(req.URL.Hostname(), noProxy) {
			return nil, nil
		}
		return proxyURL, nil
	}
}

func socks5DialContext(proxyURL *url.URL, noProxy []string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	direct := newDialer()
	dialer, err := proxy.FromURL(proxyURL, direct)
	if err != nil {
		return nil, err
	}
	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("proxy dialer for %s does not support contexts", proxyURL.Scheme)
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		if bypass(host, noProxy) {
			return direct.DialContext(ctx, network, addr)
		}
		return contextDialer.DialContext(ctx, network, addr)
	}, nil
}

// bypass reports whether host matches one of the no_proxy patterns: an exact
// host, a glob such as "*.internal", or a ".domain" suffix.
func bypass(host string, noProxy []string) bool {
	host = strings.ToLower(host)
	for _, pattern := range noProxy {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case pattern == "":
		case pattern == "*":
			return true
		case strings.HasPrefix(pattern, "."):
			if strings.HasSuffix(host, pattern) || host == pattern[1:] {
				return true
			}
		case strings.Contains(pattern, "*"):
			if ok, _ := path.Match(pattern, host); ok {
				return true
			}
		case host == pattern:
			return true
		}
	}
	return false
}

func newDialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
}
