package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// Identity verification failures. All map to 401 with a generic message;
// the distinction is for server-side logs and tests.
var (
	ErrInvalidAssertion = errors.New("auth: invalid identity assertion")
	ErrUntrustedIssuer  = errors.New("auth: identity assertion from untrusted issuer")
	ErrExpiredAssertion = errors.New("auth: identity assertion expired")
)

// trustedIssuers is the static allow-list of issuers whose assertions we
// accept. Google signs ID tokens under both spellings.
var trustedIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Identity is what a verified assertion establishes about the caller.
// SubjectID is Google's stable account identifier ("sub") — the one value
// safe to key user records on; emails can change.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
}

// GoogleVerifier validates Google-issued ID tokens against Google's
// published signing keys.
//
// Each call is a full cryptographic verification of a single assertion —
// results are never cached across requests, and the assertion's own
// expiry is enforced independently of any session credential we issue.
type GoogleVerifier struct {
	validator *idtoken.Validator
	clientID  string
}

// NewGoogleVerifier creates a verifier for tokens issued to clientID
// (the expected audience). The validator fetches and caches Google's
// public certificates internally; no credentials are needed to verify.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("auth: Google client ID must not be empty")
	}

	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: creating ID token validator: %w", err)
	}

	return &GoogleVerifier{validator: validator, clientID: clientID}, nil
}

// Verify checks the assertion's signature, audience, and expiry, then the
// issuer against the allow-list. On success it returns the identity the
// assertion establishes. No side effects.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, ErrInvalidAssertion
	}

	payload, err := v.validator.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		// The validator reports expiry inside a generic error; the
		// substring check is the only handle it gives us.
		if strings.Contains(err.Error(), "expired") {
			return nil, fmt.Errorf("%w: %w", ErrExpiredAssertion, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
	}

	if !trustedIssuers[payload.Issuer] {
		return nil, fmt.Errorf("%w: %q", ErrUntrustedIssuer, payload.Issuer)
	}

	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: assertion has no subject", ErrInvalidAssertion)
	}

	return &Identity{
		SubjectID: payload.Subject,
		Email:     stringClaim(payload.Claims, "email"),
		Name:      stringClaim(payload.Claims, "name"),
	}, nil
}

// stringClaim reads an optional string claim from the token payload.
func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
