package auth

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func tokenServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetTokenCachesUntilExpiry(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits)

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: srv.URL})
	tok, err := client.GetToken()
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if tok != "token123" {
		t.Fatalf("unexpected token %q", tok)
	}
	if _, err := client.GetToken(); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("token endpoint hit %d times, want 1", n)
	}
}

func TestSetAuthHeader(t *testing.T) {
	var hits atomic.Int32
	srv := tokenServer(t, &hits)

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: srv.URL})
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if err := client.SetAuthHeader(req); err != nil {
		t.Fatalf("set header: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer token123" {
		t.Fatalf("authorization = %q", got)
	}
}

func TestTransportStampsRequests(t *testing.T) {
	var hits atomic.Int32
	tokenSrv := tokenServer(t, &hits)

	var seen string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
	}))
	defer api.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: tokenSrv.URL})
	hc := &http.Client{Transport: client.Transport(nil)}
	resp, err := hc.Get(api.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if seen != "Bearer token123" {
		t.Fatalf("request carried %q", seen)
	}
}

func TestConfEnabled(t *testing.T) {
	if (Conf{}).Enabled() {
		t.Fatalf("empty conf must be disabled")
	}
	if !(Conf{AuthURL: "https://sso.example.com/token"}).Enabled() {
		t.Fatalf("conf with url must be enabled")
	}
}
