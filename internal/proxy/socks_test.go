package proxy

import (
	"net/http"
	"testing"
)

func TestNewHTTPClient_DirectWhenNoProxy(t *testing.T) {
	c, err := NewHTTPClient("")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if c.Transport != nil {
		t.Fatalf("expected default transport for direct client")
	}
	if c.Timeout != requestTimeout {
		t.Fatalf("timeout: got %v", c.Timeout)
	}
}

func TestNewHTTPClient_SocksTransport(t *testing.T) {
	c, err := NewHTTPClient("127.0.0.1:1080")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok || tr.DialContext == nil {
		t.Fatalf("expected transport dialing through the proxy, got %#v", c.Transport)
	}
}
