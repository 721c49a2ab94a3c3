package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vras/internal/auth/metrics"
	"vras/internal/auth/models"
	"vras/internal/auth/token"
	"vras/internal/sentinel"
	httpError "vras/internal/transport/http/error"
	dErrors "vras/pkg/domain-errors"
)

// TokenResolver is the slice of the user store the middleware reads from. It
// never writes.
type TokenResolver interface {
	FindBySessionToken(ctx context.Context, token string) (*models.User, error)
}

// RevocationList answers whether a token has been revoked since issuance.
type RevocationList interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal attached by
// RequireAuth.
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(principalKey{}).(*models.User)
	return user, ok
}

// Authenticator resolves request credentials into principals. Every request
// walks Unauthenticated -> Resolving -> Authenticated or Rejected; there is
// no partial state and no store mutation on this path.
type Authenticator struct {
	users      TokenResolver
	revocation RevocationList
	issuer     *token.Issuer
	cookieName string
	tokenTTL   time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Authenticator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// WithCookie overrides the session cookie name and max-age.
func WithCookie(name string, ttl time.Duration) Option {
	return func(a *Authenticator) {
		if name != "" {
			a.cookieName = name
		}
		if ttl > 0 {
			a.tokenTTL = ttl
		}
	}
}

func NewAuthenticator(users TokenResolver, revocation RevocationList, opts ...Option) *Authenticator {
	a := &Authenticator{
		users:      users,
		revocation: revocation,
		issuer:     token.NewIssuer(),
		cookieName: DefaultCookieName,
		tokenTTL:   DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// RequireAuth authenticates the request or rejects it with 401. Credential
// precedence: Authorization bearer header, then the session cookie. Headset
// clients send the header; browsers ride on the cookie.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential := a.extractToken(r)
		if credential == "" {
			a.reject(w, "missing_credential", "Missing authorization cookie.")
			return
		}

		revoked, err := a.revocation.IsRevoked(r.Context(), credential)
		if err != nil {
			// Fail closed: an unreachable revocation list must not let
			// logged-out tokens back in.
			a.logger.Error("revocation check failed", "error", err)
			a.reject(w, "revocation_check_failed", "Unauthorized")
			return
		}
		if revoked {
			a.reject(w, "revoked", "Unauthorized")
			return
		}

		user, err := a.users.FindBySessionToken(r.Context(), credential)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				a.logger.Error("token lookup failed", "error", err)
			}
			a.reject(w, "unknown_token", "Unauthorized")
			return
		}
		if !user.IsActive() {
			a.reject(w, "inactive_principal", "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group on the principal's coarse role. The stored
// permissions blob is deliberately not consulted.
func (a *Authenticator) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := PrincipalFromContext(r.Context())
			if !ok {
				a.reject(w, "missing_principal", "Unauthorized")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			if a.metrics != nil {
				a.metrics.IncrementAuthRejections("role_mismatch")
			}
			httpError.WriteError(w, dErrors.New(dErrors.CodeForbidden, "Access forbidden."))
		})
	}
}

// Anonymous tags identity-free endpoints (contact forms) with a throwaway
// token cookie so abuse can be correlated across requests. It resolves no
// principal and must never guard tenant-scoped data.
func (a *Authenticator) Anonymous(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.extractToken(r) == "" {
			anon, err := a.issuer.NewSessionToken()
			if err == nil {
				SetSessionCookie(w, a.cookieName, anon, a.tokenTTL)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if credential, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(credential)
		}
	}
	if cookie, err := r.Cookie(a.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func (a *Authenticator) reject(w http.ResponseWriter, reason, message string) {
	if a.metrics != nil {
		a.metrics.IncrementAuthRejections(reason)
	}
	httpError.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, message))
}
