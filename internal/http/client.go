// Package http builds the transport shared by the API client and file downloads.
package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/clouddrive/drive/internal/config"
)

// NewClient creates the HTTP client used for API calls and access-URL downloads.
//
// HTTP/2 is enabled on direct connections and disabled when a proxy is
// active, since proxies often mishandle multiplexed streams. DISABLE_HTTP2=true
// forces HTTP/1.1; FORCE_HTTP2=true keeps HTTP/2 through a proxy.
//
// With NTLM the transport is wrapped by a negotiator and is returned as-is.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}

	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		return client, nil
	}

	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	disable := os.Getenv("DISABLE_HTTP2") == "true" ||
		(proxyActive(cfg, os.Getenv) && os.Getenv("FORCE_HTTP2") != "true")
	if disable {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	client.Transport = tr
	return client, nil
}
