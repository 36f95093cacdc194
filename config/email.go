package config

import "time"

// EmailConfig contains configuration for the transactional email API.
// Email dispatch is disabled when APIKey is empty.
type EmailConfig struct {
	// APIBaseURL is the base URL of the SparkPost-compatible transmissions API.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"https://api.sparkpost.com/api/v1"`

	// APIKey authenticates against the email API.
	APIKey string `env:"API_KEY"`

	// Sender is the From address on outgoing mail.
	Sender string `env:"SENDER" envDefault:"no-reply@accounts.local"`

	// Timeout bounds a single dispatch attempt.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// Enabled reports whether email dispatch is configured.
func (e *EmailConfig) Enabled() bool { return e.APIKey != "" }
