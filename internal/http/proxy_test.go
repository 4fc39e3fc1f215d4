package http

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/Azure/go-ntlmssp"

	"github.com/megacloud/megacloud-cli/internal/config"
)

// TestProxyFuncWithBypass_EmptyNoProxy verifies that an empty noProxy always routes through proxy.
func TestProxyFuncWithBypass_EmptyNoProxy(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "")

	req, _ := http.NewRequest("GET", "https://cloud.example.com/list_files", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("expected proxy URL, got nil (direct)")
	}
	if result.Host != "proxy.corp:8080" {
		t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
	}
}

// TestProxyFuncWithBypass_WildcardDomain verifies *.example.com bypasses cloud.example.com.
func TestProxyFuncWithBypass_WildcardDomain(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "*.example.com")

	req, _ := http.NewRequest("GET", "https://cloud.example.com/list_files", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil (bypass), got %v", result)
	}

	req, _ = http.NewRequest("GET", "https://other.org/list_files", nil)
	result, _ = proxyFunc(req)
	if result == nil {
		t.Error("expected other.org to go through proxy")
	}
}

func TestBuildProxyURL(t *testing.T) {
	cfg := config.New()
	cfg.ProxyHost = "proxy.local"
	cfg.ProxyPort = 0
	cfg.ProxyUser = "bob"

	u := buildProxyURL(cfg)
	if u.Host != "proxy.local:8080" {
		t.Errorf("expected default port 8080, got %s", u.Host)
	}
	if u.User != nil {
		t.Error("credentials must not be embedded without a password")
	}

	cfg.ProxyPassword = "pw"
	u = buildProxyURL(cfg)
	if u.User == nil || u.User.Username() != "bob" {
		t.Errorf("expected embedded user bob, got %v", u.User)
	}
}

func TestConfigureHTTPClient_Modes(t *testing.T) {
	cfg := config.New()

	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		t.Fatalf("no-proxy: %v", err)
	}
	tr, ok := client.Transport.(*http.Transport)
	if !ok || tr.Proxy != nil {
		t.Error("no-proxy mode should use a plain transport without proxy")
	}

	cfg.ProxyMode = "ntlm"
	cfg.ProxyHost = "proxy.corp"
	client, err = ConfigureHTTPClient(cfg)
	if err != nil {
		t.Fatalf("ntlm: %v", err)
	}
	if _, ok := client.Transport.(ntlmssp.Negotiator); !ok {
		t.Errorf("ntlm mode should wrap the transport, got %T", client.Transport)
	}

	cfg.ProxyMode = "socks"
	if _, err := ConfigureHTTPClient(cfg); err == nil {
		t.Error("expected error for unsupported proxy mode")
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	cfg := config.New()
	if NeedsProxyPassword(cfg) {
		t.Error("no-proxy never needs a password")
	}
	cfg.ProxyMode = "basic"
	cfg.ProxyUser = "alice"
	if !NeedsProxyPassword(cfg) {
		t.Error("basic with user and no password needs a password")
	}
	cfg.ProxyPassword = "x"
	if NeedsProxyPassword(cfg) {
		t.Error("password already set")
	}
}

func TestCreateClient_DisablesHTTP2BehindProxy(t *testing.T) {
	cfg := config.New()
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.corp"

	client, err := CreateClient(cfg)
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	tr := client.Transport.(*http.Transport)
	if tr.ForceAttemptHTTP2 {
		t.Error("HTTP/2 should be disabled behind a proxy")
	}
}
