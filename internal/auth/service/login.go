package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/bcrypt"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
	dErrors "vras/pkg/domain-errors"
)

// LoginResult carries the authenticated principal and its live session token.
type LoginResult struct {
	User  *models.User
	Token string
}

// LoginTenant authenticates a tenant-scoped principal (operator or trainee)
// by username, email or mobile.
func (s *Service) LoginTenant(ctx context.Context, identifier, password, userAgent string) (*LoginResult, error) {
	return s.login(ctx, identifier, password, userAgent, false, "tenant")
}

// LoginAdmin authenticates a platform administrator. Admin scope excludes
// tenant principals, so the same identifier never resolves across both forms.
func (s *Service) LoginAdmin(ctx context.Context, identifier, password, userAgent string) (*LoginResult, error) {
	return s.login(ctx, identifier, password, userAgent, true, "admin")
}

func (s *Service) login(ctx context.Context, identifier, password, userAgent string, adminScope bool, kind string) (*LoginResult, error) {
	start := s.now()

	if !s.limiter.Allow(identifier) {
		s.recordLoginFailure(kind, "rate_limited")
		return nil, dErrors.New(dErrors.CodeRateLimited, "Too many login attempts. Try again later.")
	}

	user, err := s.users.FindActiveByIdentifier(ctx, identifier, adminScope)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn a comparison so unknown identifiers cost the same as
			// wrong passwords.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMye"), []byte(password))
			s.recordLoginFailure(kind, "unknown_identifier")
			return nil, invalidCredentials()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "login lookup failed")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordLoginFailure(kind, "wrong_password")
		return nil, invalidCredentials()
	}

	if !adminScope {
		if err := s.checkTenant(ctx, user); err != nil {
			s.recordLoginFailure(kind, "tenant_gate")
			return nil, err
		}
	}

	sessionToken, err := s.issuer.NewSessionToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue session token")
	}
	user.ApplySessionToken(sessionToken)
	user.DeviceName = deviceDisplayName(userAgent)
	user.UpdatedAt = s.now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist session token")
	}

	if s.metrics != nil {
		s.metrics.IncrementLogins(kind)
		s.metrics.IncrementTokensIssued()
		s.metrics.ObserveLoginDuration(float64(s.now().Sub(start).Milliseconds()))
	}
	s.logger.Info("login succeeded",
		"kind", kind,
		"user_id", user.ID.Int64(),
		"tenant_id", user.TenantID.Int64(),
	)
	return &LoginResult{User: user, Token: sessionToken}, nil
}

func (s *Service) checkTenant(ctx context.Context, user *models.User) error {
	tenant, err := s.tenants.FindByID(ctx, user.TenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Orphaned principal; treat like bad credentials rather than
			// leaking tenant state.
			return invalidCredentials()
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "tenant lookup failed")
	}
	return tenant.CanAuthenticate(s.now())
}

// LoginPairing authenticates a headset by its short numeric pairing code.
// The principal keeps its current session token; one is issued only when the
// account has never logged in elsewhere.
func (s *Service) LoginPairing(ctx context.Context, code string) (*LoginResult, error) {
	user, err := s.users.FindActiveByPairingCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordLoginFailure("pairing", "unknown_code")
			return nil, dErrors.NewField(dErrors.CodeUnauthorized, "code", "Invalid credentials.", "same")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "pairing lookup failed")
	}

	if err := s.checkTenant(ctx, user); err != nil {
		s.recordLoginFailure("pairing", "tenant_gate")
		return nil, err
	}

	if user.SessionToken == "" {
		sessionToken, err := s.issuer.NewSessionToken()
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue session token")
		}
		user.ApplySessionToken(sessionToken)
		user.UpdatedAt = s.now()
		if err := s.users.Update(ctx, user); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist session token")
		}
		if s.metrics != nil {
			s.metrics.IncrementTokensIssued()
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementLogins("pairing")
	}
	s.logger.Info("pairing login succeeded", "user_id", user.ID.Int64(), "tenant_id", user.TenantID.Int64())
	return &LoginResult{User: user, Token: user.SessionToken}, nil
}

// IssuePairingCode mints a fresh pairing code for the principal, retrying
// until it differs from the current one, and persists it.
func (s *Service) IssuePairingCode(ctx context.Context, user *models.User) (string, error) {
	var code string
	for attempt := 0; attempt < pairingCodeRetries; attempt++ {
		c, err := s.issuer.NewPairingCode(pairingCodeLength)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "issue pairing code")
		}
		if c != user.PairingCode {
			code = c
			break
		}
	}
	if code == "" {
		return "", dErrors.New(dErrors.CodeInternal, "could not issue a distinct pairing code")
	}

	user.PairingCode = code
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "persist pairing code")
	}
	return code, nil
}

func invalidCredentials() error {
	return dErrors.NewField(dErrors.CodeUnauthorized, "username", "Invalid credentials.", "same")
}

func (s *Service) recordLoginFailure(kind, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementLoginFailures(kind, reason)
	}
	s.logger.Warn("login failed", "kind", kind, "reason", reason)
}

// deviceDisplayName renders a User-Agent header as the short label shown in
// the account's device list, e.g. "Chrome on Mac OS X".
func deviceDisplayName(rawUserAgent string) string {
	if rawUserAgent == "" {
		return ""
	}
	ua := useragent.New(rawUserAgent)
	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	switch {
	case browser != "" && osName != "":
		return fmt.Sprintf("%s on %s", browser, osName)
	case browser != "":
		return browser
	case osName != "":
		return osName
	default:
		return ""
	}
}
