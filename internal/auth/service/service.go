package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"vras/internal/auth/metrics"
	"vras/internal/auth/models"
	"vras/internal/auth/token"
	tenantModels "vras/internal/tenant/models"
	id "vras/pkg/domain"
)

// UserStore defines the persistence interface for principal records.
// Error Contract: all Find methods return sentinel.ErrNotFound (wrapped) when
// the entity doesn't exist.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindActiveByIdentifier(ctx context.Context, identifier string, adminScope bool) (*models.User, error)
	FindActiveByEmail(ctx context.Context, email string, adminScope bool) (*models.User, error)
	FindBySessionToken(ctx context.Context, token string) (*models.User, error)
	FindActiveByPairingCode(ctx context.Context, code string) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID id.TenantID) ([]*models.User, error)
	CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error)
	ExistsIdentifier(ctx context.Context, username, email, mobile string, exclude id.UserID) (map[string]bool, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// TenantStore is the slice of the tenant module the auth core consults when
// gating tenant-scoped logins.
type TenantStore interface {
	FindByID(ctx context.Context, tenantID id.TenantID) (*tenantModels.Tenant, error)
	FindSubscriptionByID(ctx context.Context, subscriptionID id.SubscriptionID) (*tenantModels.Subscription, error)
}

// RevocationList is the injected revocation set consulted at logout and by
// the auth middleware.
type RevocationList interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// Mailer sends transactional mail (password reset, confirmations).
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

const (
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultResetTTL    = time.Hour
	pairingCodeLength  = 4
	pairingCodeRetries = 5
)

type Service struct {
	users      UserStore
	tenants    TenantStore
	revocation RevocationList
	issuer     *token.Issuer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	mailer     Mailer
	tokenTTL   time.Duration
	resetTTL   time.Duration
	bcryptCost int
	now        func() time.Time
	limiter    *loginLimiter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithMailer(mailer Mailer) Option {
	return func(s *Service) {
		s.mailer = mailer
	}
}

// WithTokenTTL configures the session token lifetime. It must match the
// cookie max-age set at the transport layer; the revocation TTL derives from
// it.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// WithLoginRateLimit bounds login attempts per identifier.
func WithLoginRateLimit(perMinute float64, burst int) Option {
	return func(s *Service) {
		if perMinute > 0 && burst > 0 {
			s.limiter = newLoginLimiter(rate.Limit(perMinute/60), burst)
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(users UserStore, tenants TenantStore, revocation RevocationList, opts ...Option) *Service {
	svc := &Service{
		users:      users,
		tenants:    tenants,
		revocation: revocation,
		issuer:     token.NewIssuer(),
		tokenTTL:   defaultTokenTTL,
		resetTTL:   defaultResetTTL,
		bcryptCost: 10,
		now:        time.Now,
		limiter:    newLoginLimiter(rate.Limit(10.0/60), 5),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// TokenTTL exposes the session token lifetime so the transport layer derives
// the cookie max-age from the same value.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// loginLimiter keeps a rate limiter per login identifier so a flood against
// one account cannot lock everyone out.
type loginLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newLoginLimiter(limit rate.Limit, burst int) *loginLimiter {
	return &loginLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *loginLimiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[identifier]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[identifier] = limiter
	}
	return limiter.Allow()
}
