package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type for context keys in this package.
// A package-private type means only this package can read or write the
// claims value — no key collisions with other packages.
type contextKey string

const claimsKey contextKey = "sessionClaims"

// RequireAuth enforces a valid session credential on protected routes.
//
// The credential travels in the "Authorization: Bearer <token>" header.
// On success the validated claims are stored in the request context; on
// any failure — missing header, malformed scheme, bad signature, expiry —
// the chain stops with a 401 and the same generic body, so the response
// never hints at why a token was rejected.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractClaims(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the authenticated caller's claims.
// Returns (nil, false) on routes that didn't pass through RequireAuth.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// extractClaims reads and validates the bearer token from the
// Authorization header.
func extractClaims(r *http.Request, tokens *TokenService) (*Claims, error) {
	header := r.Header.Get("Authorization")

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, ErrInvalidCredential
	}

	return tokens.Validate(strings.TrimSpace(token))
}
