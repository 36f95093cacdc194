package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/veduta/accounts-api/internal/domain/model"
	"github.com/veduta/accounts-api/internal/ports"
	"github.com/veduta/accounts-api/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	Login(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	Signup(ctx context.Context, req model.SignupRequest) (*service.AuthResult, error)
	RecoverPassword(ctx context.Context, email string) (*service.RecoverResult, error)
	ResetPassword(ctx context.Context, token, password string) error
	BeginGoogleLogin(ctx context.Context, redirectURL string) (authURL, state, nonce string, err error)
	CompleteGoogleLogin(ctx context.Context, in ports.ExchangeInput) (*service.AuthResult, error)
}

// UserReader fetches a fresh user record for the /me endpoint.
type UserReader interface {
	Get(ctx context.Context, id string) (*model.User, error)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Users        UserReader
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Signup handles POST /api/v1/auth/signup.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Signup(r.Context(), req)
	if err != nil {
		h.logger().Debug("signup refused", slog.Any("error", err))
		WriteServiceError(w, err)
		return
	}
	h.writeAuthSuccess(w, r, result, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger().Debug("login refused", slog.Any("error", err))
		WriteServiceError(w, err)
		return
	}
	h.writeAuthSuccess(w, r, result, http.StatusOK)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, r, JWTCookieName)
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "You have successfully logged out",
	})
}

type recoverPasswordRequest struct {
	Email string `json:"email"`
}

// RecoverPassword handles POST /api/v1/auth/recover-password.
func (h *AuthHandlers) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req recoverPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	// A recovery request invalidates the current session.
	h.clearCookie(w, r, JWTCookieName)

	result, err := h.Svc.RecoverPassword(r.Context(), req.Email)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("A reset email has been sent to %s.", result.Email),
		"user": map[string]string{
			"email": result.Email,
			"token": result.Token,
		},
		"emailStatus": result.Receipt,
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword handles POST /api/v1/auth/reset-password.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Password successfully updated",
	})
}

// Me handles GET /api/v1/auth/me. Runs behind RequireAuth.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaimsFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized,
			"If you can see this message there is something wrong with authentication")
		return
	}

	user, err := h.Users.Get(r.Context(), claims.UserID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "User logged retrieved",
		"data":    map[string]any{"user": user.Public()},
	})
}

// GoogleBegin handles GET /api/v1/auth/google. It stores state and nonce in
// short-lived cookies and redirects to the provider.
func (h *AuthHandlers) GoogleBegin(w http.ResponseWriter, r *http.Request) {
	authURL, state, nonce, err := h.Svc.BeginGoogleLogin(r.Context(), "")
	if err != nil {
		h.logger().Error("google login begin failed", slog.Any("error", err))
		WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: state, Nonce: nonce})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// GoogleCallback handles GET /api/v1/auth/google/callback.
func (h *AuthHandlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, http.StatusBadRequest, "Authorization code is required")
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		WriteError(w, http.StatusBadRequest, "Invalid or missing state parameter")
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Missing nonce parameter")
		return
	}
	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")

	result, err := h.Svc.CompleteGoogleLogin(r.Context(), ports.ExchangeInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().Error("google login failed", slog.Any("error", err))
		WriteServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.writeAuthSuccess(w, r, result, status)
}

// writeAuthSuccess sets the jwt cookie and writes the success envelope used
// by login, signup, and the federated callback.
func (h *AuthHandlers) writeAuthSuccess(w http.ResponseWriter, r *http.Request, result *service.AuthResult, status int) {
	http.SetCookie(w, &http.Cookie{
		Name:     JWTCookieName,
		Value:    result.Token,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  result.ExpiresAt,
	})

	WriteJSON(w, status, map[string]any{
		"status":        "success",
		"token":         result.Token,
		"token_expires": result.ExpiresAt,
		"data":          map[string]any{"user": result.User.Public()},
	})
}

// oauthCookieParams groups values stored between Begin and Callback.
type oauthCookieParams struct {
	State string
	Nonce string
}

func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := requestIsSecure(r)
	for name, value := range map[string]string{"oauth_state": p.State, "oauth_nonce": p.Nonce} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600, // 10 minutes
		})
	}
}

// clearCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func requestIsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
