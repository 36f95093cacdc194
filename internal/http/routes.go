package httpx

import (
	"log/slog"
	"net/http"

	"github.com/veduta/accounts-api/config"
	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
	"github.com/veduta/accounts-api/internal/ports"
)

// Rate limit messages, per limiter.
const (
	msgAPILimit     = "You have exceeded the 100 requests in 1 minute limit!"
	msgRecoverLimit = "Too many requests to recover password, please try again in 1 minute."
	msgResetLimit   = "Too many requests to reset password, please try again in 1 minute."
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     AuthServiceInterface
	Users    UsersServiceInterface
	Verifier TokenVerifier

	// Limiter may be nil; rate limiting is then disabled.
	Limiter   ports.Limiter
	RateLimit config.RateLimitConfig

	CookieDomain string
	// DevMode exposes fault detail in 500 responses.
	DevMode bool
	Logger  *slog.Logger
}

type middleware = func(http.Handler) http.Handler

// routeLimits groups the per-concern rate limit wrappers.
type routeLimits struct {
	api     middleware
	recover middleware
	reset   middleware
}

// NewRouter creates and configures the HTTP router with auth middleware.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	SetDevMode(services.DevMode)

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Users:        services.Users,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}
	userHandlers := &UserHandlers{Svc: services.Users}

	limits := buildRouteLimits(services, logger)
	registerAuthRoutes(mux, authHandlers, limits)
	registerUserRoutes(mux, userHandlers, limits)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	// Claims resolution runs on every request so per-route gates only need
	// to read the context.
	handler := CurrentUser(services.Verifier)(mux)
	return Recover(logger)(Logging(logger)(handler))
}

func buildRouteLimits(services RouterServices, logger *slog.Logger) routeLimits {
	limiter := services.Limiter
	rl := services.RateLimit
	if !rl.Enabled {
		limiter = nil
	}
	return routeLimits{
		api: RateLimit(limiter, RateLimitOptions{
			Name: "api", Max: rl.APIMax, Window: rl.Window,
			Message: msgAPILimit, Logger: logger,
		}),
		recover: RateLimit(limiter, RateLimitOptions{
			Name: "recover-password", Max: rl.RecoverPasswordMax, Window: rl.Window,
			Message: msgRecoverLimit, Logger: logger,
		}),
		reset: RateLimit(limiter, RateLimitOptions{
			Name: "reset-password", Max: rl.ResetPasswordMax, Window: rl.Window,
			Message: msgResetLimit, Logger: logger,
		}),
	}
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, limits routeLimits) {
	api := limits.api
	mux.Handle("POST /api/v1/auth/signup", api(http.HandlerFunc(h.Signup)))
	mux.Handle("POST /api/v1/auth/login", api(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/v1/auth/logout", api(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /api/v1/auth/recover-password",
		api(limits.recover(http.HandlerFunc(h.RecoverPassword))))
	mux.Handle("POST /api/v1/auth/reset-password",
		api(limits.reset(http.HandlerFunc(h.ResetPassword))))
	mux.Handle("GET /api/v1/auth/me",
		api(RequireAuth()(http.HandlerFunc(h.Me))))
	mux.Handle("GET /api/v1/auth/google", api(http.HandlerFunc(h.GoogleBegin)))
	mux.Handle("GET /api/v1/auth/google/callback", api(http.HandlerFunc(h.GoogleCallback)))
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, limits routeLimits) {
	api := limits.api
	mux.Handle("GET /api/v1/users",
		api(RequireAuth()(RequireRights(domainauth.CapGetUsers)(http.HandlerFunc(h.List)))))
	mux.Handle("GET /api/v1/users/{userId}",
		api(RequireAuth()(RequireRights(domainauth.CapGetUsers)(http.HandlerFunc(h.Get)))))
	mux.Handle("PATCH /api/v1/users/{userId}/deactivate",
		api(RequireAuth()(RequireAdmin()(http.HandlerFunc(h.Deactivate)))))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
