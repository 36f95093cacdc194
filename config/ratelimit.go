package config

import "time"

// RateLimitConfig contains fixed-window rate limiting configuration.
// Limits are per client IP per window.
type RateLimitConfig struct {
	// Enabled turns rate limiting on. Requires a configured Redis connection.
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// Window is the length of the counting window.
	Window time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// APIMax is the general API request budget per window.
	APIMax int `env:"RATE_LIMIT_API_MAX" envDefault:"200"`

	// RecoverPasswordMax is the budget for POST /recover-password per window.
	RecoverPasswordMax int `env:"RATE_LIMIT_RECOVER_MAX" envDefault:"1"`

	// ResetPasswordMax is the budget for POST /reset-password per window.
	ResetPasswordMax int `env:"RATE_LIMIT_RESET_MAX" envDefault:"10"`
}

// Sanitize applies guardrails to rate limit configuration values.
func (r *RateLimitConfig) Sanitize() {
	if r.Window <= 0 {
		r.Window = time.Minute
	}
	if r.APIMax <= 0 {
		r.APIMax = 200
	}
	if r.RecoverPasswordMax <= 0 {
		r.RecoverPasswordMax = 1
	}
	if r.ResetPasswordMax <= 0 {
		r.ResetPasswordMax = 10
	}
}
