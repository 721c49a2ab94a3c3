package service

import (
	"context"

	"vras/internal/auth/models"
	dErrors "vras/pkg/domain-errors"
)

// Logout revokes the principal's live session token and clears its credential
// material. The revocation list is written first: if clearing the store row
// fails afterwards, the token is already dead, so the failure mode rejects
// rather than accepts.
func (s *Service) Logout(ctx context.Context, user *models.User) error {
	current := user.SessionToken
	if current != "" {
		if err := s.revocation.Revoke(ctx, current, s.tokenTTL); err != nil {
			if s.metrics != nil {
				s.metrics.IncrementRevocationErrors()
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "revoke session token")
		}
		if s.metrics != nil {
			s.metrics.IncrementTokensRevoked()
		}
	}

	user.ClearCredentials()
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		// The revocation above stands; the stale row's token no longer
		// authenticates.
		s.logger.Error("logout persist failed after revocation",
			"user_id", user.ID.Int64(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "clear credentials")
	}

	if s.metrics != nil {
		s.metrics.IncrementLogouts()
	}
	s.logger.Info("logout", "user_id", user.ID.Int64())
	return nil
}
