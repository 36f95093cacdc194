package ports

// Package ports defines interfaces (hexagonal ports) for the auth pipeline's
// collaborators. Implementations live in internal/data and internal/adapters;
// orchestration in internal/service.

import (
	"context"
	"time"

	"github.com/veduta/accounts-api/internal/domain/model"
)

// UserRepository persists and retrieves user records. Lookups on unique
// fields return data.ErrUserNotFound when no record matches.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	// GetByResetToken matches the stored reset token with an unexpired
	// expiry at the given instant.
	GetByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error)

	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string, expires time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	LinkGoogle(ctx context.Context, id string, link model.GoogleLink, pictureURL string) (*model.User, error)
	SetActive(ctx context.Context, id string, active bool) error

	List(ctx context.Context, limit, offset int) ([]*model.User, error)
}

// FederatedProfile is the identity shape returned by an external OAuth-style
// provider after a completed code exchange.
type FederatedProfile struct {
	ID           string
	Email        string
	FullName     string
	PictureURL   string
	AccessToken  string
	RefreshToken string
}

// BeginInput carries inputs for initiating a federated login flow.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// FederatedProvider initiates and completes an authentication flow against
// an external identity provider.
type FederatedProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an
	// opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and
	// returns the external profile.
	Exchange(ctx context.Context, in ExchangeInput) (FederatedProfile, error)
}

// DeliveryReceipt reports the outcome of a dispatched email.
type DeliveryReceipt struct {
	ID       string
	Accepted int
	Rejected int
}

// Mailer dispatches transactional email. Implementations must not block
// beyond their configured timeout.
type Mailer interface {
	// SendPasswordReset delivers the reset token to the recipient.
	SendPasswordReset(ctx context.Context, recipient, resetToken string) (DeliveryReceipt, error)
}

// Limiter enforces a per-key request budget within a fixed window.
type Limiter interface {
	// Allow consumes one unit of the key's budget and reports whether the
	// request is within limits, along with the remaining budget.
	Allow(ctx context.Context, key string, max int, window time.Duration) (allowed bool, remaining int, err error)
}
