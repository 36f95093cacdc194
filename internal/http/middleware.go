package httpx

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/veduta/accounts-api/internal/domain/auth"
	"github.com/veduta/accounts-api/internal/ports"
)

// Messages surfaced by the auth gate.
const (
	MsgPleaseLogin  = "You are not authorized! Please login!"
	MsgNotAdmin     = "You are not an admin!"
	MsgRightsDenied = "You are not authorized to use this endpoint"
)

// JWTCookieName is the cookie carrying the signed session token.
const JWTCookieName = "jwt"

// TokenVerifier checks a bearer token's signature and expiry.
type TokenVerifier interface {
	Verify(tokenString string) (domainauth.Claims, error)
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, http.StatusInternalServerError, "Internal Server Error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentUser resolves the caller's claims on every request. Requests without
// any credential pass through anonymously; a present but invalid credential
// is refused outright.
func CurrentUser(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, present := bearerFromRequest(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := SetClaimsInContext(r.Context(), &claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerFromRequest extracts the token, preferring a Bearer Authorization
// header over the jwt cookie. Non-Bearer Authorization schemes are not a
// credential for this API and are ignored.
func bearerFromRequest(r *http.Request) (string, bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return after, true
		}
	}
	if c, err := r.Cookie(JWTCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// RequireAuth refuses requests without an authenticated, active user.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, MsgPleaseLogin)
				return
			}
			if !claims.Active {
				WriteError(w, http.StatusUnauthorized, "Account is deactivated.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin refuses callers whose role is not exactly admin.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, MsgPleaseLogin)
				return
			}
			if claims.Role != domainauth.RoleAdmin {
				WriteError(w, http.StatusUnauthorized, MsgNotAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRights refuses callers whose role lacks any of the required
// capabilities, unless the {userId} path parameter is the caller's own ID.
func RequireRights(required ...domainauth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaimsFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, MsgPleaseLogin)
				return
			}
			if len(required) > 0 && !domainauth.HasRights(claims.Role, required...) {
				if userID := r.PathValue("userId"); userID == "" || userID != claims.UserID {
					WriteError(w, http.StatusUnauthorized, MsgRightsDenied)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitOptions configures one fixed-window limit.
type RateLimitOptions struct {
	// Name prefixes the limiter key so separate routes keep separate budgets.
	Name    string
	Max     int
	Window  time.Duration
	Message string
	Logger  *slog.Logger
}

// RateLimit enforces a per-client-IP budget through the limiter. Limiter
// outages fail open so a Redis hiccup doesn't take the API down with it.
func RateLimit(limiter ports.Limiter, opts RateLimitOptions) func(http.Handler) http.Handler {
	message := opts.Message
	if message == "" {
		message = "Too many requests, please try again later."
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || opts.Max <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.Name + ":" + clientIP(r)
			allowed, remaining, err := limiter.Allow(r.Context(), key, opts.Max, opts.Window)
			if err != nil {
				if opts.Logger != nil {
					opts.Logger.Warn("rate limiter unavailable",
						slog.String("name", opts.Name),
						slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("RateLimit-Limit", strconv.Itoa(opts.Max))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(remaining))

			if !allowed {
				WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"status":  "error",
					"message": message,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the originating address, honoring X-Forwarded-For when a
// proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
