// Package auth provides client-credentials authentication for the solver
// backends. Tokens are fetched lazily and reused until they expire.
package auth

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ClientCred caches one OAuth2 client-credentials token.
type ClientCred struct {
	conf  oauth2Config
	token *oauth2.Token
}

type oauth2Config interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// NewClientCred creates a token client for the given configuration.
func NewClientCred(conf Conf) *ClientCred {
	cc := conf.toOauth2Config()
	return &ClientCred{conf: &cc}
}

// GetToken returns the cached access token, fetching a fresh one when the
// cached token is missing or expired.
func (c *ClientCred) GetToken() (string, error) {
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken, nil
	}
	if err := c.refresh(); err != nil {
		return "", err
	}
	return c.token.AccessToken, nil
}

// SetAuthHeader stamps the Authorization header on r, refreshing the token
// first when needed.
func (c *ClientCred) SetAuthHeader(r *http.Request) error {
	if c.token == nil || !c.token.Valid() {
		if err := c.refresh(); err != nil {
			return err
		}
	}
	c.token.SetAuthHeader(r)
	return nil
}

func (c *ClientCred) refresh() error {
	tok, err := c.conf.Token(context.Background())
	if err != nil {
		return fmt.Errorf("fetch token: %w", err)
	}
	c.token = tok
	return nil
}

// Transport wraps base so every request carries a valid bearer token. A nil
// base falls back to http.DefaultTransport.
func (c *ClientCred) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{cred: c, base: base}
}

type authTransport struct {
	cred *ClientCred
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	clone := r.Clone(r.Context())
	if err := t.cred.SetAuthHeader(clone); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(clone)
}
