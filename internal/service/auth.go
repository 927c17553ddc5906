// Package service — business logic between the HTTP handlers and the
// directory, verifier, and quota components.
//
//	AuthHandler (HTTP) → AuthService → IdentityVerifier (Google)
//	                                 → UserRepository (directory)
//	                                 → TokenService (session JWTs)
//	                                 → quota.Manager (allowance)
//
// Services know nothing about HTTP; handlers know nothing about the
// directory. Every external failure is mapped to an apperror category
// here, so handlers only ever translate categories to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/auth"
	"github.com/sakif/stock-advisor/internal/model"
	"github.com/sakif/stock-advisor/internal/quota"
	"github.com/sakif/stock-advisor/internal/repository"
)

// IdentityVerifier validates an external identity assertion. Satisfied by
// *auth.GoogleVerifier; an interface here so tests can stub the provider.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.Identity, error)
}

// AuthService orchestrates the authentication handoff: external assertion
// in, local session credential out.
type AuthService struct {
	verifier IdentityVerifier
	users    repository.UserRepository
	tokens   *auth.TokenService
	quota    *quota.Manager
	logger   *slog.Logger
}

func NewAuthService(
	verifier IdentityVerifier,
	users repository.UserRepository,
	tokens *auth.TokenService,
	quota *quota.Manager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		verifier: verifier,
		users:    users,
		tokens:   tokens,
		quota:    quota,
		logger:   logger,
	}
}

// AuthResult bundles everything the login response needs.
type AuthResult struct {
	Token     string
	User      *model.User
	Remaining int
}

// LoginWithGoogle is the authentication handoff.
//
//  1. Verify the Google assertion — signature, audience, expiry, issuer.
//     Nothing is created or mutated before this succeeds.
//  2. Get-or-create the user record, refreshing email/name.
//  3. Issue the 24-hour session credential.
//  4. Report today's remaining allowance. Reported, not consumed: an
//     exhausted user can still sign in and read remaining = 0.
func (s *AuthService) LoginWithGoogle(ctx context.Context, rawIDToken string) (*AuthResult, error) {
	identity, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		// Full detail server-side, a fixed generic message to the caller.
		s.logger.Warn("Google token verification failed", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized("Invalid Google token")
	}

	user := &model.User{
		SubjectID: identity.SubjectID,
		Email:     identity.Email,
		Name:      identity.Name,
	}
	if err := s.users.GetOrCreate(ctx, user); err != nil {
		s.logger.Error("get-or-create failed",
			slog.String("subjectID", identity.SubjectID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unavailable("creating user record", err)
	}

	token, err := s.tokens.Generate(user.SubjectID, user.Email)
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("issuing session token for %s", user.SubjectID), err)
	}

	remaining, err := s.remainingForReport(ctx, user.SubjectID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via Google",
		slog.String("subjectID", user.SubjectID),
		slog.String("email", user.Email),
		slog.Int("queriesRemaining", remaining),
	)

	return &AuthResult{
		Token:     token,
		User:      user,
		Remaining: remaining,
	}, nil
}

// Profile returns the user record and remaining allowance for the
// profile endpoint. Read-only aside from a possible day-rollover reset.
func (s *AuthService) Profile(ctx context.Context, subjectID string) (*model.User, int, error) {
	user, err := s.users.GetBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Valid session but the record is gone (administrative
			// deletion). Treat as an auth failure, not a 404 leak.
			return nil, 0, apperror.Unauthorized("valid authentication required")
		}
		return nil, 0, apperror.Unavailable(fmt.Sprintf("loading user %s", subjectID), err)
	}

	remaining, err := s.remainingForReport(ctx, subjectID)
	if err != nil {
		return nil, 0, err
	}

	// The check may have just persisted a day rollover; mirror it on the
	// record we return so the profile shows the reset counter, not the
	// stale one.
	if today := s.quota.Today(); user.LastQueryDate != today {
		user.QueriesUsedToday = 0
		user.LastQueryDate = today
	}

	return user, remaining, nil
}

// remainingForReport peeks at the allowance for display purposes.
// An exhausted quota is reported as zero, never as an error — only the
// chat path fails closed on QuotaExceeded.
func (s *AuthService) remainingForReport(ctx context.Context, subjectID string) (int, error) {
	remaining, err := s.quota.CheckRemaining(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperror.ErrQuotaExceeded) {
			return 0, nil
		}
		return 0, apperror.Unavailable(fmt.Sprintf("checking quota for %s", subjectID), err)
	}
	return remaining, nil
}
