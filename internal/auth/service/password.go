package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"vras/internal/auth/models"
	"vras/internal/sentinel"
	dErrors "vras/pkg/domain-errors"
)

// ForgotPassword stores a short-lived reset code on the account and mails it.
// Scope mirrors the login forms: the admin flow never matches tenant
// principals and vice versa.
func (s *Service) ForgotPassword(ctx context.Context, email string, adminScope bool) error {
	user, err := s.users.FindActiveByEmail(ctx, email, adminScope)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.NewField(dErrors.CodeNotFound, "email", "Email not found.", "exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset lookup failed")
	}

	code, err := s.issuer.NewResetCode()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "issue reset code")
	}
	user.ApplyResetCode(code, s.now().Add(s.resetTTL))
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist reset code")
	}

	if s.mailer != nil {
		body := fmt.Sprintf(
			"<p>Hello %s,</p><p>Your password reset code is <strong>%s</strong>. It expires in one hour.</p>",
			user.FullName(), code)
		if err := s.mailer.Send(ctx, user.Email, "Password reset", body); err != nil {
			// The code is already stored; a mail hiccup should not undo it.
			s.logger.Error("reset mail failed", "user_id", user.ID.Int64(), "error", err)
		}
	}
	s.logger.Info("reset code issued", "user_id", user.ID.Int64())
	return nil
}

// ResetPassword consumes a reset code and installs the new password hash.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string, adminScope bool) error {
	user, err := s.users.FindActiveByEmail(ctx, email, adminScope)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.NewField(dErrors.CodeNotFound, "email", "Email not found.", "exists")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "reset lookup failed")
	}

	if err := user.ConsumeResetCode(code, s.now()); err != nil {
		return dErrors.NewField(dErrors.CodeUnauthorized, "code", "Invalid or expired reset code.", "same")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist password")
	}

	if s.metrics != nil {
		s.metrics.IncrementPasswordResets()
	}
	s.logger.Info("password reset", "user_id", user.ID.Int64())
	return nil
}

// ChangePassword verifies the current password and installs a new hash for an
// authenticated principal.
func (s *Service) ChangePassword(ctx context.Context, user *models.User, currentPassword, newPassword string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return dErrors.NewField(dErrors.CodeUnauthorized, "current_password", "Current password is incorrect.", "same")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist password")
	}

	if s.mailer != nil {
		body := fmt.Sprintf("<p>Hello %s,</p><p>Your password was changed. If this wasn't you, contact support immediately.</p>",
			user.FullName())
		if err := s.mailer.Send(ctx, user.Email, "Password changed", body); err != nil {
			s.logger.Error("password change mail failed", "user_id", user.ID.Int64(), "error", err)
		}
	}
	s.logger.Info("password changed", "user_id", user.ID.Int64())
	return nil
}

// HashPassword wraps bcrypt with the configured cost; used by user creation
// paths in the tenant and handler layers.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}
	return string(hash), nil
}
