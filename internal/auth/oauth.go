// Package auth covers GitHub OAuth and session-token authentication.
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// OAuth wraps the GitHub OAuth application config.
type OAuth struct {
	cfg *oauth2.Config
}

// NewOAuth builds the authorize/exchange config. The callback lands on this
// service, which then redirects back to the dashboard.
func NewOAuth(clientID, clientSecret, appURL string) *OAuth {
	return &OAuth{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     githuboauth.Endpoint,
			Scopes:       []string{"repo"},
			RedirectURL:  appURL + "/api/auth/github/callback",
		},
	}
}

// Configured reports whether the OAuth app credentials are set.
func (o *OAuth) Configured() bool {
	return o.cfg.ClientID != ""
}

// AuthorizeURL returns the GitHub authorization URL. The state parameter is
// the authenticated user's external id and is verified on callback.
func (o *OAuth) AuthorizeURL(state string) string {
	return o.cfg.AuthCodeURL(state)
}

// ExchangedToken is the result of a successful code exchange.
type ExchangedToken struct {
	AccessToken string
	TokenType   string
	Scope       string
}

// Exchange trades an authorization code for an access token.
func (o *OAuth) Exchange(ctx context.Context, code string) (ExchangedToken, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return ExchangedToken{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	scope, _ := tok.Extra("scope").(string)
	return ExchangedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Scope:       scope,
	}, nil
}

// SetEndpoint overrides the provider endpoints. Test hook.
func (o *OAuth) SetEndpoint(endpoint oauth2.Endpoint) {
	o.cfg.Endpoint = endpoint
}
