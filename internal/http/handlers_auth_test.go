package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
	"github.com/veduta/accounts-api/internal/domain/model"
	"github.com/veduta/accounts-api/internal/ports"
	"github.com/veduta/accounts-api/internal/service"
)

// mockAuthService is a test double for AuthServiceInterface.
type mockAuthService struct {
	loginFunc    func(ctx context.Context, identifier, password string) (*service.AuthResult, error)
	signupFunc   func(ctx context.Context, req model.SignupRequest) (*service.AuthResult, error)
	recoverFunc  func(ctx context.Context, email string) (*service.RecoverResult, error)
	resetFunc    func(ctx context.Context, token, password string) error
	beginFunc    func(ctx context.Context, redirectURL string) (string, string, string, error)
	completeFunc func(ctx context.Context, in ports.ExchangeInput) (*service.AuthResult, error)
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string) (*service.AuthResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, identifier, password)
	}
	return testAuthResult(), nil
}

func (m *mockAuthService) Signup(ctx context.Context, req model.SignupRequest) (*service.AuthResult, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, req)
	}
	result := testAuthResult()
	result.Created = true
	return result, nil
}

func (m *mockAuthService) RecoverPassword(ctx context.Context, email string) (*service.RecoverResult, error) {
	if m.recoverFunc != nil {
		return m.recoverFunc(ctx, email)
	}
	return &service.RecoverResult{
		Email:   email,
		Token:   "reset-token",
		Receipt: ports.DeliveryReceipt{ID: "tx-1", Accepted: 1},
	}, nil
}

func (m *mockAuthService) ResetPassword(ctx context.Context, token, password string) error {
	if m.resetFunc != nil {
		return m.resetFunc(ctx, token, password)
	}
	return nil
}

func (m *mockAuthService) BeginGoogleLogin(ctx context.Context, redirectURL string) (string, string, string, error) {
	if m.beginFunc != nil {
		return m.beginFunc(ctx, redirectURL)
	}
	return "https://accounts.google.com/o/oauth2/v2/auth?state=s1", "s1", "n1", nil
}

func (m *mockAuthService) CompleteGoogleLogin(ctx context.Context, in ports.ExchangeInput) (*service.AuthResult, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, in)
	}
	return testAuthResult(), nil
}

// mockUserReader returns a fixed user for /me.
type mockUserReader struct {
	getFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserReader) Get(ctx context.Context, id string) (*model.User, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return testUser(), nil
}

func testUser() *model.User {
	return &model.User{
		ID:       "user-1",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Role:     domainauth.RoleUser,
		Active:   true,
	}
}

func testAuthResult() *service.AuthResult {
	return &service.AuthResult{
		User:      testUser(),
		Token:     "signed.jwt.token",
		ExpiresAt: time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second),
	}
}

func newAuthHandlers(svc AuthServiceInterface) *AuthHandlers {
	return &AuthHandlers{Svc: svc, Users: &mockUserReader{}, Logger: testLogger()}
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type authEnvelope struct {
	Status       string    `json:"status"`
	Token        string    `json:"token"`
	TokenExpires time.Time `json:"token_expires"`
	Data         struct {
		User model.PublicUser `json:"user"`
	} `json:"data"`
}

func TestAuthHandlers_Login_Success(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"jdoe@example.com","password":"secret password"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var env authEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "signed.jwt.token", env.Token)
	assert.False(t, env.TokenExpires.IsZero())
	assert.Equal(t, "user-1", env.Data.User.ID)
	assert.Equal(t, "jdoe@example.com", env.Data.User.Email)

	cookie := findCookie(t, w, JWTCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, "signed.jwt.token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.False(t, cookie.Secure) // plain request, no TLS or forwarded proto
	assert.False(t, cookie.Expires.IsZero())
}

func TestAuthHandlers_Login_SecureCookieBehindProxy(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"jdoe@example.com","password":"secret password"}`))
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	h.Login(w, req)

	cookie := findCookie(t, w, JWTCookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestAuthHandlers_Login_Rejected(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		loginFunc: func(context.Context, string, string) (*service.AuthResult, error) {
			return nil, &service.Rejection{Status: http.StatusUnauthorized, Message: service.MsgIncorrectCredential}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"jdoe@example.com","password":"wrong"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, service.MsgIncorrectCredential, decodeErrorEnvelope(t, w).Error.Message)
	assert.Nil(t, findCookie(t, w, JWTCookieName))
}

func TestAuthHandlers_Login_StorageErrorHidden(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		loginFunc: func(context.Context, string, string) (*service.AuthResult, error) {
			return nil, errors.New("pq: connection refused")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"jdoe@example.com","password":"secret password"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal Server Error", decodeErrorEnvelope(t, w).Error.Message)
}

func TestAuthHandlers_Login_MalformedBody(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	h.Login(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlers_Signup_Created(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup",
		strings.NewReader(`{"username":"jdoe","email":"jdoe@example.com","password":"secret password"}`))
	w := httptest.NewRecorder()
	h.Signup(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, findCookie(t, w, JWTCookieName))

	var env authEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "success", env.Status)
}

func TestAuthHandlers_Logout(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "You have successfully logged out", body["message"])

	cookie := findCookie(t, w, JWTCookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestAuthHandlers_RecoverPassword(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/recover-password",
		strings.NewReader(`{"email":"jdoe@example.com"}`))
	w := httptest.NewRecorder()
	h.RecoverPassword(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		User    struct {
			Email string `json:"email"`
			Token string `json:"token"`
		} `json:"user"`
		EmailStatus ports.DeliveryReceipt `json:"emailStatus"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "A reset email has been sent to jdoe@example.com.", body.Message)
	assert.Equal(t, "jdoe@example.com", body.User.Email)
	assert.Equal(t, "reset-token", body.User.Token)
	assert.Equal(t, 1, body.EmailStatus.Accepted)

	// The current session is invalidated on a recovery request.
	cookie := findCookie(t, w, JWTCookieName)
	require.NotNil(t, cookie)
	assert.Negative(t, cookie.MaxAge)
}

func TestAuthHandlers_RecoverPassword_UnknownEmail(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		recoverFunc: func(context.Context, string) (*service.RecoverResult, error) {
			return nil, &service.Rejection{Status: http.StatusNotFound, Message: service.MsgRecoverUserNotFound}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/recover-password",
		strings.NewReader(`{"email":"nobody@example.com"}`))
	w := httptest.NewRecorder()
	h.RecoverPassword(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, service.MsgRecoverUserNotFound, decodeErrorEnvelope(t, w).Error.Message)
}

func TestAuthHandlers_ResetPassword(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password",
		strings.NewReader(`{"token":"reset-token","password":"new password here"}`))
	w := httptest.NewRecorder()
	h.ResetPassword(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Password successfully updated", body["message"])
}

func TestAuthHandlers_ResetPassword_InvalidToken(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		resetFunc: func(context.Context, string, string) error {
			return &service.Rejection{Status: http.StatusBadRequest, Message: service.MsgResetTokenInvalid}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/reset-password",
		strings.NewReader(`{"token":"stale","password":"new password here"}`))
	w := httptest.NewRecorder()
	h.ResetPassword(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.MsgResetTokenInvalid, decodeErrorEnvelope(t, w).Error.Message)
}

func TestAuthHandlers_Me(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	claims := activeClaims(domainauth.RoleUser)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(SetClaimsInContext(req.Context(), &claims))
	w := httptest.NewRecorder()
	h.Me(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			User model.PublicUser `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "User logged retrieved", body.Message)
	assert.Equal(t, "user-1", body.Data.User.ID)
}

func TestAuthHandlers_GoogleBegin(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google", nil)
	w := httptest.NewRecorder()
	h.GoogleBegin(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "accounts.google.com")

	state := findCookie(t, w, "oauth_state")
	require.NotNil(t, state)
	assert.Equal(t, "s1", state.Value)
	assert.Equal(t, 600, state.MaxAge)
	assert.True(t, state.HttpOnly)

	nonce := findCookie(t, w, "oauth_nonce")
	require.NotNil(t, nonce)
	assert.Equal(t, "n1", nonce.Value)
}

func TestAuthHandlers_GoogleCallback_NewAccount(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		completeFunc: func(_ context.Context, in ports.ExchangeInput) (*service.AuthResult, error) {
			assert.Equal(t, "auth-code", in.Code)
			assert.Equal(t, "s1", in.State)
			assert.Equal(t, "n1", in.Nonce)
			result := testAuthResult()
			result.Created = true
			return result, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?code=auth-code&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "n1"})
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, findCookie(t, w, JWTCookieName))
}

func TestAuthHandlers_GoogleCallback_ExistingAccount(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?code=auth-code&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "n1"})
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandlers_GoogleCallback_MissingCode(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=s1", nil)
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Authorization code is required", decodeErrorEnvelope(t, w).Error.Message)
}

func TestAuthHandlers_GoogleCallback_StateMismatch(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?code=auth-code&state=tampered", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	req.AddCookie(&http.Cookie{Name: "oauth_nonce", Value: "n1"})
	w := httptest.NewRecorder()
	h.GoogleCallback(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid or missing state parameter", decodeErrorEnvelope(t, w).Error.Message)
}
