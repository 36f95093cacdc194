package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/veduta/accounts-api/config"
	"github.com/veduta/accounts-api/internal/adapters/email"
	"github.com/veduta/accounts-api/internal/adapters/googleauth"
	redisadapter "github.com/veduta/accounts-api/internal/adapters/redis"
	"github.com/veduta/accounts-api/internal/data"
	"github.com/veduta/accounts-api/internal/ports"
	"github.com/veduta/accounts-api/internal/service"
	"github.com/veduta/accounts-api/internal/token"
)

// ServiceDeps groups the shared infrastructure handed to service construction.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the constructed application services.
type ServiceContainer struct {
	Auth   *service.AuthService
	Users  *service.UserService
	Tokens *token.Issuer

	// Limiter is nil when Redis is not configured.
	Limiter ports.Limiter
}

// NewServices wires repositories, adapters, and services together.
// Dependency injection happens here and nowhere else.
func NewServices(ctx context.Context, deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service dependencies are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	issuer, err := token.NewIssuer(token.Options{
		Key:        cfg.Auth.JWTKey,
		SessionTTL: cfg.Auth.SessionTokenTTL,
		GeneralTTL: cfg.Auth.GeneralTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	userRepo := data.NewUserRepo(deps.DB)

	var mailer ports.Mailer
	if cfg.Email.Enabled() {
		sp, mailErr := email.NewSparkPost(email.Config{
			BaseURL:    cfg.Email.APIBaseURL,
			APIKey:     cfg.Email.APIKey,
			Sender:     cfg.Email.Sender,
			AppBaseURL: cfg.HTTP.BaseURL,
			Timeout:    cfg.Email.Timeout,
		})
		if mailErr != nil {
			return nil, fmt.Errorf("email adapter: %w", mailErr)
		}
		mailer = sp
	} else {
		logger.Info("email dispatch disabled", "reason", "no API key configured")
	}

	var provider ports.FederatedProvider
	if cfg.Auth.GoogleEnabled() {
		gp, provErr := googleauth.NewProvider(ctx, googleauth.ProviderConfig{
			ClientID:     cfg.Auth.Google.ClientID,
			ClientSecret: cfg.Auth.Google.ClientSecret,
			RedirectURL:  cfg.Auth.Google.RedirectURL,
			Scope:        cfg.Auth.Google.Scope,
		})
		if provErr != nil {
			return nil, fmt.Errorf("google auth provider: %w", provErr)
		}
		provider = gp
	} else {
		logger.Info("google login disabled", "reason", "no client credentials configured")
	}

	var limiter ports.Limiter
	if deps.RedisClient != nil {
		limiter = redisadapter.NewRateLimiter(deps.RedisClient)
	}

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Users:         userRepo,
		Tokens:        issuer,
		Provider:      provider,
		Mailer:        mailer,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
	})

	return &ServiceContainer{
		Auth:    authSvc,
		Users:   service.NewUserService(userRepo),
		Tokens:  issuer,
		Limiter: limiter,
	}, nil
}
