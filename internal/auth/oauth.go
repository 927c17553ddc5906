package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleProvider wraps golang.org/x/oauth2 for the server-side Google
// Authorization Code flow.
//
// Most clients verify with Google themselves and POST the resulting ID
// token to /auth/google. This provider is the alternative entry for
// browser-first flows: the server redirects to Google, Google calls back
// with a code, and the code exchange yields an ID token that funnels into
// the exact same GoogleVerifier path. The access token in the exchange
// response is discarded — we only want the identity assertion.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a provider with the given OAuth credentials.
// callbackURL must exactly match an authorized redirect URI on the OAuth
// client in the Google Cloud console.
//
// Scopes: "openid" makes Google include an ID token in the exchange
// response; "email" and "profile" populate its email/name claims.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL returns the Google authorization URL to redirect the user to.
// state is a random value the callback handler verifies against a cookie
// to block CSRF-initiated logins.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the raw ID token embedded in
// Google's token response. The caller passes it to GoogleVerifier.Verify —
// possession of a code is not proof of identity, the signed assertion is.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("auth: token response contains no id_token")
	}

	return rawIDToken, nil
}
