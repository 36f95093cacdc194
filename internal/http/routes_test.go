package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veduta/accounts-api/config"
	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
	mocks "github.com/veduta/accounts-api/internal/mocks/auth"
)

func newTestRouter(t *testing.T, mutate func(*RouterServices)) http.Handler {
	t.Helper()
	services := RouterServices{
		Auth:     &mockAuthService{},
		Users:    &mockUsersService{},
		Verifier: &stubVerifier{claims: activeClaims(domainauth.RoleUser)},
		Logger:   testLogger(),
	}
	if mutate != nil {
		mutate(&services)
	}
	return NewRouter(services)
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	req = httptest.NewRequest(http.MethodHead, "/healthz", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MeWithoutCredential(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgPleaseLogin, decodeErrorEnvelope(t, w).Error.Message)
}

func TestRouter_MeWithCookie(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: JWTCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_InvalidTokenRefusedBeforeRouting(t *testing.T) {
	router := newTestRouter(t, func(s *RouterServices) {
		s.Verifier = &stubVerifier{err: assert.AnError}
	})

	// Even an unprotected route refuses a malformed credential.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: JWTCookieName, Value: "garbage"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_DeactivateRequiresAdmin(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/user-2/deactivate", nil)
	req.AddCookie(&http.Cookie{Name: JWTCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgNotAdmin, decodeErrorEnvelope(t, w).Error.Message)
}

func TestRouter_DeactivateAsAdmin(t *testing.T) {
	router := newTestRouter(t, func(s *RouterServices) {
		s.Verifier = &stubVerifier{claims: activeClaims(domainauth.RoleAdmin)}
	})

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/user-2/deactivate", nil)
	req.AddCookie(&http.Cookie{Name: JWTCookieName, Value: "valid-token"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ListUsersRequiresLogin(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RecoverPasswordRateLimited(t *testing.T) {
	router := newTestRouter(t, func(s *RouterServices) {
		s.Limiter = mocks.NewMemoryLimiter()
		s.RateLimit = config.RateLimitConfig{
			Enabled:            true,
			Window:             time.Minute,
			APIMax:             200,
			RecoverPasswordMax: 1,
			ResetPasswordMax:   10,
		}
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/recover-password",
			jsonBody(`{"email":"jdoe@example.com"}`))
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)

	second := send()
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, msgRecoverLimit, body["message"])
}

func TestRouter_RateLimitDisabled(t *testing.T) {
	router := newTestRouter(t, func(s *RouterServices) {
		s.Limiter = mocks.NewMemoryLimiter()
		s.RateLimit = config.RateLimitConfig{
			Enabled:            false,
			Window:             time.Minute,
			RecoverPasswordMax: 1,
		}
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/recover-password",
			jsonBody(`{"email":"jdoe@example.com"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
