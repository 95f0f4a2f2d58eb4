// Package oauth obtains Sea access tokens with the authorization code grant.
package oauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// ErrInvalidState is returned by Exchange when the callback state is missing
// or does not match the state issued with the authorize URL.
var ErrInvalidState = errors.New("invalid state")

// Config holds the OAuth client registration.
type Config struct {
	AuthorizeURL string
	TokenURL     string
	ClientID     string
	ClientSecret string

	// RedirectURL is optional; servers with a single registered redirect
	// URL do not need it.
	RedirectURL string
}

// Flow runs the authorization code grant against one server.
type Flow struct {
	cfg *oauth2.Config
}

// NewFlow creates a Flow. Client credentials are sent in the token request
// body.
func NewFlow(cfg Config) *Flow {
	return &Flow{cfg: &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.AuthorizeURL,
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}}
}

// AuthorizeURL returns the URL the user visits to grant access, and the state
// the caller must keep until the callback arrives.
func (f *Flow) AuthorizeURL() (authURL, state string) {
	state = uuid.NewString()
	return f.cfg.AuthCodeURL(state), state
}

// Exchange trades the authorization code from the callback for a token.
// savedState is the state returned by AuthorizeURL.
func (f *Flow) Exchange(ctx context.Context, savedState, state, code string) (*oauth2.Token, error) {
	if savedState == "" || savedState != state {
		return nil, ErrInvalidState
	}
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	tok, err := f.cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("state", state))
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if tok.TokenType != "Bearer" {
		return nil, fmt.Errorf("invalid token type %q", tok.TokenType)
	}
	return tok, nil
}

// TokenSource returns a source that always yields tok. Sea tokens are not
// refreshed.
func TokenSource(tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.StaticTokenSource(tok)
}
