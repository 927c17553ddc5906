// Package auth covers both halves of the authentication handoff: verifying
// Google-issued identity assertions (google.go, oauth.go) and issuing our
// own session credentials (this file, middleware.go).
//
// SESSION FLOW:
// 1. Client obtains a Google ID token and POSTs it to /auth/google
// 2. Server verifies it against Google's published keys, upserts the user
// 3. Server issues its own 24-hour JWT bound to the subject + email
// 4. Subsequent calls carry "Authorization: Bearer <jwt>"; middleware
//    validates it without any DB lookup — signature and expiry decide
//
// The session token's lifetime is independent of the Google token's: the
// Google assertion is verified once, at login, and never cached.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is how long an issued session credential stays valid.
// After that the client must sign in with Google again.
const TokenLifetime = 24 * time.Hour

const issuer = "stock-advisor"

// Session credential failures. Both map to 401; they are distinct so the
// client can tell "sign in again" from "this token was never valid".
var (
	ErrExpiredCredential = errors.New("auth: session token expired")
	ErrInvalidCredential = errors.New("auth: invalid session token")
)

// Claims is what a validated session credential asserts about the caller.
type Claims struct {
	SubjectID string
	Email     string
}

// sessionClaims is the JWT payload. Subject carries the Google subject ID,
// Email rides along so protected endpoints don't need a directory read
// just to know who they're talking to.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session credentials with a process-wide
// HMAC secret. The same secret does both; keep it out of source control.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Generate creates and signs a session credential for the given subject.
// Deterministic aside from the timestamps; no side effects, no DB access.
func (s *TokenService) Generate(subjectID, email string) (string, error) {
	return s.GenerateWithDuration(subjectID, email, TokenLifetime)
}

// GenerateWithDuration creates a token with a custom expiry. Used by tests
// to mint already-expired or about-to-expire tokens.
func (s *TokenService) GenerateWithDuration(subjectID, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session credential, returning the claims
// it asserts.
//
// The jwt library checks the signature, the expiry, and the issuer.
// Pinning HS256 via WithValidMethods blocks algorithm-confusion attacks —
// without it an attacker could present a token "signed" with none.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredential
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredential
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidCredential)
	}

	return &Claims{SubjectID: c.Subject, Email: c.Email}, nil
}
