package http

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/clouddrive/drive/internal/config"
)

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name       string
		noProxy    string
		url        string
		wantBypass bool
	}{
		{"empty list always proxies", "", "https://api.example.com/data", false},
		{"wildcard domain", "*.example.com", "https://api.example.com/data", true},
		{"exact domain matches root", "example.com", "https://example.com/data", true},
		{"exact domain matches subdomain", "example.com", "https://api.example.com/data", true},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3:8080/api", true},
		{"non-matching host", "*.internal.corp,10.0.0.0/8", "https://backend.onrender.com/files", false},
		{"multiple patterns cidr", "*.example.com, 192.168.0.0/16, internal.corp", "http://192.168.1.100/api", true},
		{"multiple patterns exact", "*.example.com, 192.168.0.0/16, internal.corp", "https://internal.corp/status", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxyFunc := proxyFuncWithBypass(proxyURL, tt.noProxy)
			req, _ := http.NewRequest("GET", tt.url, nil)
			result, err := proxyFunc(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBypass && result != nil {
				t.Errorf("expected bypass (nil) for %s, got %v", tt.url, result)
			}
			if !tt.wantBypass {
				if result == nil {
					t.Fatalf("expected proxy for %s, got nil (bypass)", tt.url)
				}
				if result.Host != "proxy.corp:8080" {
					t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
				}
			}
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProxyHost = "proxy.corp"

	u := buildProxyURL(cfg)
	if u.Host != "proxy.corp:8080" {
		t.Errorf("default port not applied: %s", u.Host)
	}
	if u.User != nil {
		t.Error("no credentials expected without user/password")
	}

	cfg.ProxyPort = 3128
	cfg.ProxyUser = "alice"
	u = buildProxyURL(cfg)
	if u.User != nil {
		t.Error("user without password must not be embedded")
	}

	cfg.ProxyPassword = "s3cret"
	u = buildProxyURL(cfg)
	if u.Host != "proxy.corp:3128" || u.User.Username() != "alice" {
		t.Errorf("unexpected proxy URL %s", u.Redacted())
	}
}

func TestConfigureHTTPClient_Modes(t *testing.T) {
	base := func() *config.Config {
		cfg := config.NewConfig()
		cfg.RequestTimeout = 7 * time.Second
		return cfg
	}

	t.Run("no-proxy", func(t *testing.T) {
		client, err := ConfigureHTTPClient(base())
		if err != nil {
			t.Fatal(err)
		}
		tr := client.Transport.(*http.Transport)
		if tr.Proxy != nil {
			t.Error("no-proxy mode must not set a proxy func")
		}
		if client.Timeout != 7*time.Second {
			t.Errorf("Timeout = %v", client.Timeout)
		}
	})

	t.Run("system", func(t *testing.T) {
		cfg := base()
		cfg.ProxyMode = "system"
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if client.Transport.(*http.Transport).Proxy == nil {
			t.Error("system mode should use ProxyFromEnvironment")
		}
	})

	t.Run("basic", func(t *testing.T) {
		cfg := base()
		cfg.ProxyMode = "basic"
		cfg.ProxyHost = "proxy.corp"
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if client.Transport.(*http.Transport).Proxy == nil {
			t.Error("basic mode should set a proxy func")
		}
	})

	t.Run("ntlm wraps transport", func(t *testing.T) {
		cfg := base()
		cfg.ProxyMode = "ntlm"
		cfg.ProxyHost = "proxy.corp"
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := client.Transport.(ntlmssp.Negotiator); !ok {
			t.Errorf("expected ntlmssp.Negotiator, got %T", client.Transport)
		}
	})

	t.Run("ntlm without host falls back", func(t *testing.T) {
		cfg := base()
		cfg.ProxyMode = "ntlm"
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if tr, ok := client.Transport.(*http.Transport); !ok || tr.Proxy != nil {
			t.Error("expected direct transport fallback")
		}
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := base()
		cfg.ProxyMode = "socks5"
		if _, err := ConfigureHTTPClient(cfg); err == nil {
			t.Error("expected error for unsupported mode")
		}
	})
}

func TestNeedsProxyPassword(t *testing.T) {
	cfg := config.NewConfig()
	if NeedsProxyPassword(cfg) {
		t.Error("no-proxy never needs a password")
	}
	cfg.ProxyMode = "ntlm"
	cfg.ProxyUser = "alice"
	if !NeedsProxyPassword(cfg) {
		t.Error("ntlm with user and no password needs a password")
	}
	cfg.ProxyPassword = "x"
	if NeedsProxyPassword(cfg) {
		t.Error("password already present")
	}
}

func TestProxyActive(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	cfg := config.NewConfig()
	if proxyActive(cfg, getenv) {
		t.Error("no-proxy is never active")
	}
	cfg.ProxyMode = "system"
	if proxyActive(cfg, getenv) {
		t.Error("system mode without env vars is inactive")
	}
	env["https_proxy"] = "http://proxy:3128"
	if !proxyActive(cfg, getenv) {
		t.Error("system mode with https_proxy is active")
	}
	cfg.ProxyMode = "basic"
	if !proxyActive(cfg, func(string) string { return "" }) {
		t.Error("basic mode is always active")
	}
}

func TestNewClientDisablesHTTP2ThroughProxy(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.corp"

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	tr := client.Transport.(*http.Transport)
	if tr.ForceAttemptHTTP2 {
		t.Error("HTTP/2 should be disabled when a proxy is active")
	}
}
