package config

import "time"

// GoogleOAuthConfig contains the Google OAuth/OIDC client configuration.
// Federated login is disabled when ClientID or ClientSecret is empty.
type GoogleOAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/google/callback"`
	Scope        string `env:"SCOPE"        envDefault:"openid profile email"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// JWTKey is the shared HMAC signing key for bearer tokens.
	// The process refuses to start without it.
	JWTKey string `env:"JWT_KEY,required"`

	// SessionTokenTTL is the lifetime of tokens minted at login/signup.
	SessionTokenTTL time.Duration `env:"SESSION_TOKEN_TTL" envDefault:"24h"`

	// GeneralTokenTTL is the default lifetime of general-purpose tokens
	// minted outside the login flow.
	GeneralTokenTTL time.Duration `env:"GENERAL_TOKEN_TTL" envDefault:"240h"`

	// ResetTokenTTL is how long a password reset token stays valid.
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`

	// Google OAuth configuration (used for /auth/google).
	Google GoogleOAuthConfig `envPrefix:"GOOGLE_"`
}

// Sanitize applies guardrails to auth configuration values.
func (a *AuthConfig) Sanitize() {
	if a.SessionTokenTTL <= 0 {
		a.SessionTokenTTL = 24 * time.Hour
	}
	if a.GeneralTokenTTL <= 0 {
		a.GeneralTokenTTL = 240 * time.Hour
	}
	if a.ResetTokenTTL <= 0 {
		a.ResetTokenTTL = time.Hour
	}
}

// GoogleEnabled reports whether federated Google login is configured.
func (a *AuthConfig) GoogleEnabled() bool {
	return a.Google.ClientID != "" && a.Google.ClientSecret != ""
}
