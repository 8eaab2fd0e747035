package proxy

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"logbook-hq/relay/pkg/config"
)

// NewTransport builds the outbound transport. With UseProxy set every
// request is sent through the configured HTTP proxy; otherwise requests
// are dialed directly and proxy environment variables are ignored.
//
// Compression is never requested on behalf of the client, so responses are
// relayed exactly as the upstream encoded them.
func NewTransport(cfg config.UpstreamConfig) (*http.Transport, error) {
	if errs := config.ValidateUpstream(&cfg); len(errs) > 0 {
		return nil, fmt.Errorf("invalid upstream configuration: %w", config.ValidationError{Errors: errs})
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}

	t := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableCompression:    true,
	}
	if cfg.InsecureSkipVerify {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if cfg.UseProxy {
		proxyURL := &url.URL{
			Scheme: "http",
			Host:   net.JoinHostPort(cfg.ProxyHost, strconv.Itoa(cfg.ProxyPort)),
		}
		t.Proxy = http.ProxyURL(proxyURL)
	}

	return t, nil
}
