package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/veduta/accounts-api/internal/data"
	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
	"github.com/veduta/accounts-api/internal/domain/model"
	"github.com/veduta/accounts-api/internal/ports"
)

const resetTokenBytes = 20

// TokenSigner mints signed session tokens for an authenticated user.
type TokenSigner interface {
	Sign(user *model.User) (token string, expiresAt time.Time, err error)
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Users    ports.UserRepository
	Tokens   TokenSigner
	Provider ports.FederatedProvider
	Mailer   ports.Mailer

	// ResetTokenTTL bounds the lifetime of password reset tokens.
	ResetTokenTTL time.Duration

	// Now overrides the clock, useful for tests. Defaults to time.Now.
	Now func() time.Time
}

// AuthService orchestrates account authentication: credential and federated
// login, signup, and the password recovery flow.
type AuthService struct {
	users         ports.UserRepository
	tokens        TokenSigner
	provider      ports.FederatedProvider
	mailer        ports.Mailer
	resetTokenTTL time.Duration
	now           func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	nowFn := opts.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	ttl := opts.ResetTokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		users:         opts.Users,
		tokens:        opts.Tokens,
		provider:      opts.Provider,
		mailer:        opts.Mailer,
		resetTokenTTL: ttl,
		now:           nowFn,
	}
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time

	// Created reports whether the flow provisioned a new account.
	Created bool
}

// Login authenticates by email or username plus password. Rejections carry
// the caller-facing message; anything else is a storage or signing failure.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = domainauth.NormalizeEmail(identifier)
	if identifier == "" {
		return nil, rejectUnauthorized(MsgUserNotFound)
	}

	user, err := s.users.GetByEmail(ctx, identifier)
	if errors.Is(err, data.ErrUserNotFound) {
		// The login field doubles as a username.
		user, err = s.users.GetByUsername(ctx, identifier)
	}
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, rejectUnauthorized(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, rejectUnauthorized(MsgUserNotFound)
	}

	if !user.ComparePassword(password) {
		return nil, rejectUnauthorized(MsgIncorrectCredential)
	}
	if !user.Active {
		return nil, rejectUnauthorized(MsgAccountDeactivated)
	}

	loginAt := s.now().UTC()
	if updateErr := s.users.UpdateLastLogin(ctx, user.ID, loginAt); updateErr != nil {
		return nil, fmt.Errorf("record login: %w", updateErr)
	}
	user.LastLoginAt = &loginAt

	return s.issue(user, false)
}

// Signup registers a new local account and returns it already logged in.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (*AuthResult, error) {
	if err := req.Validate(); err != nil {
		return nil, rejectBadRequest(err.Error())
	}
	req.Normalize()

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, rejectBadRequest(MsgEmailRegistered)
	} else if !errors.Is(err, data.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, rejectBadRequest(MsgUsernameExists)
	} else if !errors.Is(err, data.ErrUserNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	user := &model.User{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         domainauth.DefaultRole,
		Active:       true,
		FeatureFlags: model.DefaultFeatureFlags(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, rejectBadRequest(err.Error())
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		// Concurrent signup can lose the race between the existence check
		// and the insert; surface the same rejection either way.
		switch {
		case errors.Is(err, data.ErrEmailTaken):
			return nil, rejectBadRequest(MsgEmailRegistered)
		case errors.Is(err, data.ErrUsernameTaken):
			return nil, rejectBadRequest(MsgUsernameExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issue(created, true)
}

// RecoverResult reports a generated password reset token and its delivery.
type RecoverResult struct {
	Email   string
	Token   string
	Receipt ports.DeliveryReceipt
}

// RecoverPassword generates a reset token for the account with the given
// email and dispatches it by mail when a mailer is configured.
func (s *AuthService) RecoverPassword(ctx context.Context, email string) (*RecoverResult, error) {
	email = domainauth.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, data.ErrUserNotFound) {
		return nil, reject(http.StatusNotFound, MsgRecoverUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	token, err := generateResetToken()
	if err != nil {
		return nil, fmt.Errorf("generate reset token: %w", err)
	}
	expires := s.now().UTC().Add(s.resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, token, expires); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	res := &RecoverResult{Email: user.Email, Token: token}
	if s.mailer != nil {
		receipt, sendErr := s.mailer.SendPasswordReset(ctx, user.Email, token)
		if sendErr != nil {
			return nil, fmt.Errorf("send reset email: %w", sendErr)
		}
		res.Receipt = receipt
	}
	return res, nil
}

// ResetPassword sets a new password for the account holding an unexpired
// reset token, then invalidates the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if err := model.ValidatePassword(password); err != nil {
		return rejectBadRequest(err.Error())
	}

	user, err := s.users.GetByResetToken(ctx, token, s.now())
	if errors.Is(err, data.ErrUserNotFound) {
		return rejectBadRequest(MsgResetTokenInvalid)
	}
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if err := user.SetPassword(password); err != nil {
		return rejectBadRequest(err.Error())
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.PasswordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// BeginGoogleLogin starts the federated flow and returns the provider auth
// URL with state and nonce.
func (s *AuthService) BeginGoogleLogin(ctx context.Context, redirectURL string) (authURL, state, nonce string, err error) {
	if s.provider == nil {
		return "", "", "", errors.New("google login is not configured")
	}
	return s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
}

// CompleteGoogleLogin exchanges the authorization code and logs the federated
// identity in, provisioning or linking an account as needed.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, in ports.ExchangeInput) (*AuthResult, error) {
	if s.provider == nil {
		return nil, errors.New("google login is not configured")
	}
	profile, err := s.provider.Exchange(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return s.FederatedLogin(ctx, profile)
}

// FederatedLogin resolves an external profile to a local account. Matching
// runs in order: linked provider ID, then email (which links the account),
// then a fresh signup seeded from the profile.
func (s *AuthService) FederatedLogin(ctx context.Context, profile ports.FederatedProfile) (*AuthResult, error) {
	if profile.ID == "" {
		return nil, errors.New("federated profile has no subject ID")
	}

	user, err := s.users.GetByGoogleID(ctx, profile.ID)
	if err == nil {
		return s.issue(user, false)
	}
	if !errors.Is(err, data.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup by google ID: %w", err)
	}

	link := model.GoogleLink{
		ID:           profile.ID,
		Sync:         true,
		AccessToken:  profile.AccessToken,
		RefreshToken: profile.RefreshToken,
	}

	email := domainauth.NormalizeEmail(profile.Email)
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		linked, linkErr := s.users.LinkGoogle(ctx, existing.ID, link, profile.PictureURL)
		if linkErr != nil {
			return nil, fmt.Errorf("link google account: %w", linkErr)
		}
		return s.issue(linked, false)
	}
	if !errors.Is(err, data.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup by email: %w", err)
	}

	user = &model.User{
		Username:     email,
		FullName:     profile.FullName,
		Email:        email,
		Google:       link,
		Role:         domainauth.DefaultRole,
		Active:       true,
		PictureURL:   profile.PictureURL,
		FeatureFlags: model.DefaultFeatureFlags(),
	}
	// Accounts provisioned from a federated identity start without a chosen
	// password; the access token stands in until the user sets one.
	if err := user.SetPassword(profile.AccessToken); err != nil {
		return nil, fmt.Errorf("seed password: %w", err)
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create federated user: %w", err)
	}
	return s.issue(created, true)
}

func (s *AuthService) issue(user *model.User, created bool) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Sign(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt, Created: created}, nil
}

func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
