//revive:disable-next-line:var-naming // legacy package name used across the project
package model

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
)

const (
	minPasswordLen = 8
	maxUsernameLen = 64
	bcryptCost     = 10
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// GoogleLink holds the federated-identity sub-record for a Google account.
type GoogleLink struct {
	ID           string `json:"id,omitempty"            db:"google_id"`
	Sync         bool   `json:"sync"                    db:"google_sync"`
	AccessToken  string `json:"-"                       db:"google_access_token"`
	RefreshToken string `json:"-"                       db:"google_refresh_token"`
}

// Linked reports whether the record carries a federated Google identity.
func (g GoogleLink) Linked() bool { return g.ID != "" }

// User is the persisted identity record. PasswordHash is never serialized;
// use Public for wire responses.
type User struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	FullName     string `db:"full_name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`

	ResetPasswordToken   *string    `db:"reset_password_token"`
	ResetPasswordExpires *time.Time `db:"reset_password_expires"`

	Google GoogleLink `db:""`

	Role       domainauth.Role `db:"role"`
	Active     bool            `db:"active"`
	PictureURL string          `db:"picture_url"`

	LastLoginAt  *time.Time                      `db:"last_login_at"`
	FeatureFlags map[string]domainauth.FlagState `db:"feature_flags"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PublicUser is the JSON shape of a user with secret material removed.
type PublicUser struct {
	ID           string                          `json:"id"`
	Username     string                          `json:"username"`
	FullName     string                          `json:"fullName,omitempty"`
	Email        string                          `json:"email"`
	Role         domainauth.Role                 `json:"role"`
	Active       bool                            `json:"active"`
	PictureURL   string                          `json:"pictureUrl,omitempty"`
	GoogleSync   bool                            `json:"googleSync"`
	LastLoginAt  *time.Time                      `json:"lastLoginDate,omitempty"`
	FeatureFlags map[string]domainauth.FlagState `json:"featureFlags,omitempty"`
	CreatedAt    time.Time                       `json:"createdAt"`
	UpdatedAt    time.Time                       `json:"updatedAt"`
}

// Public returns the wire shape of the user. The password hash and reset
// token fields never leave the process.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		Role:         u.Role,
		Active:       u.Active,
		PictureURL:   u.PictureURL,
		GoogleSync:   u.Google.Sync,
		LastLoginAt:  u.LastLoginAt,
		FeatureFlags: u.FeatureFlags,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// SetPassword bcrypt-hashes the plaintext and stores the hash.
func (u *User) SetPassword(plaintext string) error {
	if plaintext == "" {
		return errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// ComparePassword reports whether the plaintext matches the stored hash.
// bcrypt's comparison is constant-time over the hash.
func (u *User) ComparePassword(plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)) == nil
}

// Claims builds the bearer-token claim set for this user.
func (u *User) Claims() domainauth.Claims {
	return domainauth.Claims{
		UserID:       u.ID,
		Email:        u.Email,
		Active:       u.Active,
		Role:         u.Role,
		FeatureFlags: u.FeatureFlags,
	}
}

// HasValidResetToken reports whether the stored reset token matches and has
// not expired at the given instant.
func (u *User) HasValidResetToken(token string, now time.Time) bool {
	if u.ResetPasswordToken == nil || u.ResetPasswordExpires == nil || token == "" {
		return false
	}
	return *u.ResetPasswordToken == token && now.Before(*u.ResetPasswordExpires)
}

// ClearResetToken removes the reset-token fields after consumption.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpires = nil
}

// DefaultFeatureFlags returns the flag map assigned to new accounts.
func DefaultFeatureFlags() map[string]domainauth.FlagState {
	return map[string]domainauth.FlagState{
		"allowSendEmail":   domainauth.FlagGranted,
		"allowSendSms":     domainauth.FlagGranted,
		"betaFeatures":     domainauth.FlagDefault,
		"darkMode":         domainauth.FlagDefault,
		"personalization":  domainauth.FlagDefault,
		"geolocationBased": domainauth.FlagDefault,
		"security":         domainauth.FlagDefault,
		"payment":          domainauth.FlagDefault,
	}
}

// SignupRequest contains fields to create a new local account.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
}

func (r *SignupRequest) Validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

// Normalize lowercases the unique identity fields in place.
func (r *SignupRequest) Normalize() {
	r.Username = domainauth.NormalizeUsername(r.Username)
	r.Email = domainauth.NormalizeEmail(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

func validateUsername(username string) error {
	u := strings.TrimSpace(username)
	if u == "" {
		return errors.New("username is required and cannot be empty")
	}
	if utf8.RuneCountInString(u) > maxUsernameLen {
		return errors.New("username cannot exceed 64 characters")
	}
	return nil
}

// ValidateEmail checks the rough shape of an email address.
func ValidateEmail(email string) error {
	e := strings.TrimSpace(email)
	if e == "" {
		return errors.New("email can't be blank")
	}
	if !emailRe.MatchString(e) {
		return errors.New("please provide an email address")
	}
	return nil
}

// ValidatePassword enforces the minimum secret length.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
