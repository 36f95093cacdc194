// Package token mints and verifies the signed bearer tokens used for
// session auth. Tokens are self-contained; nothing is persisted.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
	"github.com/veduta/accounts-api/internal/domain/model"
)

const issuerName = "accounts-api"

// DefaultGeneralTTL is the fallback lifetime for general-purpose tokens.
const DefaultGeneralTTL = 240 * time.Hour

// ErrMissingKey is returned by NewIssuer when no signing key is configured.
// This is checked once at process start, never per call.
var ErrMissingKey = errors.New("token: signing key is required")

// jwtClaims is the wire shape of the claim set.
type jwtClaims struct {
	Email        string                          `json:"email"`
	Active       bool                            `json:"active"`
	Role         string                          `json:"role"`
	FeatureFlags map[string]domainauth.FlagState `json:"featureFlags,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer tokens with a shared HMAC key.
type Issuer struct {
	key        []byte
	sessionTTL time.Duration
	generalTTL time.Duration
}

// Options configures an Issuer.
type Options struct {
	// Key is the shared HMAC-SHA256 signing key. Required.
	Key string
	// SessionTTL is the lifetime of session tokens minted by Sign.
	SessionTTL time.Duration
	// GeneralTTL is the lifetime of tokens minted by SignPayload.
	// Defaults to DefaultGeneralTTL.
	GeneralTTL time.Duration
}

// NewIssuer constructs an Issuer, failing fast when the key is absent.
func NewIssuer(opts Options) (*Issuer, error) {
	if opts.Key == "" {
		return nil, ErrMissingKey
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	generalTTL := opts.GeneralTTL
	if generalTTL <= 0 {
		generalTTL = DefaultGeneralTTL
	}
	return &Issuer{
		key:        []byte(opts.Key),
		sessionTTL: sessionTTL,
		generalTTL: generalTTL,
	}, nil
}

// Sign mints a session token for a user, embedding the identity claim set.
// Returns the compact token and its absolute expiry.
func (i *Issuer) Sign(user *model.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.sessionTTL)

	c := user.Claims()
	claims := &jwtClaims{
		Email:        c.Email,
		Active:       c.Active,
		Role:         string(c.Role),
		FeatureFlags: c.FeatureFlags,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// SignPayload mints a general-purpose token carrying an arbitrary payload
// under the "payload" claim, with the longer general TTL.
func (i *Issuer) SignPayload(payload map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"payload": payload,
		"iss":     issuerName,
		"iat":     jwt.NewNumericDate(now),
		"exp":     jwt.NewNumericDate(now.Add(i.generalTTL)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign payload token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the decoded claim set.
// The signing algorithm is pinned to HMAC.
func (i *Issuer) Verify(tokenString string) (domainauth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.key, nil
	})
	if err != nil {
		return domainauth.Claims{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return domainauth.Claims{}, errors.New("verify token: invalid claims")
	}

	out := domainauth.Claims{
		UserID:       claims.Subject,
		Email:        claims.Email,
		Active:       claims.Active,
		Role:         domainauth.Role(claims.Role),
		FeatureFlags: claims.FeatureFlags,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
