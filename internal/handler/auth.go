package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/stock-advisor/internal/apperror"
	"github.com/sakif/stock-advisor/internal/auth"
	"github.com/sakif/stock-advisor/internal/service"
)

// AuthHandler exposes the authentication surface:
//
//	POST /auth/google          → verify a client-obtained Google ID token
//	GET  /auth/google/login    → server-side OAuth flow: redirect to Google
//	GET  /auth/google/callback → complete the OAuth flow
//	GET  /auth/profile         → the signed-in user's profile and usage
type AuthHandler struct {
	auths  *service.AuthService
	google *auth.GoogleProvider // nil when the code flow isn't configured
	logger *slog.Logger
}

func NewAuthHandler(auths *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auths:  auths,
		google: google,
		logger: logger,
	}
}

// GoogleAuthRequest is the POST /auth/google body.
type GoogleAuthRequest struct {
	IDToken string `json:"id_token"`
}

// AuthResponse is the login response: the session credential plus the
// identity and allowance it was issued for.
type AuthResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	QueriesRemaining int    `json:"queries_remaining"`
}

// UserProfile is the GET /auth/profile response.
type UserProfile struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	QueriesUsedToday int    `json:"queries_used_today"`
	QueriesRemaining int    `json:"queries_remaining"`
	LastQueryDate    string `json:"last_query_date,omitempty"`
}

// HandleGoogleAuth authenticates with a Google ID token.
//
// HTTP: POST /auth/google
func (h *AuthHandler) HandleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req GoogleAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}
	if req.IDToken == "" {
		writeError(w, apperror.ValidationFailed("id_token", "id_token is required"))
		return
	}

	result, err := h.auths.LoginWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken:      result.Token,
		TokenType:        "bearer",
		UserID:           result.User.SubjectID,
		Email:            result.User.Email,
		Name:             result.User.Name,
		QueriesRemaining: result.Remaining,
	})
}

// HandleGoogleLogin starts the server-side OAuth flow by redirecting the
// browser to Google's authorization page.
//
// HTTP: GET /auth/google/login
//
// The random state lands in a short-lived HttpOnly cookie; the callback
// verifies it to prove the flow started here and not on an attacker's
// page.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apperror.ValidationFailed("", "server-side Google login is not configured"))
		return
	}

	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the server-side OAuth flow: verifies the
// state, exchanges the code for an ID token, and funnels it through the
// same login path as POST /auth/google.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeError(w, apperror.ValidationFailed("", "server-side Google login is not configured"))
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: OAuth state mismatch")
		writeError(w, apperror.Unauthorized("invalid OAuth state"))
		return
	}

	// Single-use: clear the state cookie whatever happens next.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		writeError(w, apperror.Unauthorized("authorization denied"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	rawIDToken, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: code exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("Invalid Google token"))
		return
	}

	result, err := h.auths.LoginWithGoogle(r.Context(), rawIDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		AccessToken:      result.Token,
		TokenType:        "bearer",
		UserID:           result.User.SubjectID,
		Email:            result.User.Email,
		Name:             result.User.Name,
		QueriesRemaining: result.Remaining,
	})
}

// HandleProfile returns the signed-in user's profile and usage.
//
// HTTP: GET /auth/profile
// Auth: required (RequireAuth sets the claims in context)
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't assume the wiring.
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	user, remaining, err := h.auths.Profile(r.Context(), claims.SubjectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserProfile{
		UserID:           user.SubjectID,
		Email:            user.Email,
		Name:             user.Name,
		QueriesUsedToday: user.QueriesUsedToday,
		QueriesRemaining: remaining,
		LastQueryDate:    user.LastQueryDate,
	})
}
