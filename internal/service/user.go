package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/vuviet/userservice/internal/models"
	"github.com/vuviet/userservice/internal/repo"
	"github.com/vuviet/userservice/pkg/hash"
	"github.com/vuviet/userservice/pkg/logging"
)

// UserService carries the account operations around the auth core:
// profile readback and the mutations that must revoke the session.
type UserService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
}

type ProfileUpdate struct {
	Password string
	FullName string
	Email    string
}

func (s *UserService) Profile(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateRole moves the user to the named role and revokes their refresh
// token, so the old privilege survives only in already-issued access
// tokens until they expire.
func (s *UserService) UpdateRole(ctx context.Context, userID uint, roleName string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.update_role", "user_id", userID)

	user, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	role, err := s.Repo.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	if err := s.Repo.UpdateUserRole(ctx, user.ID, role.ID); err != nil {
		return nil, err
	}

	l.Info("role_changed", "username", user.Username, "from", user.Role.Name, "to", role.Name)
	s.publishEvent(ctx, "user_role_changed", user.Username)

	return s.Repo.FindByID(ctx, user.ID)
}

// UpdateProfile applies the non-empty fields. A password change clears
// the refresh token, forcing a re-login with the new credential.
func (s *UserService) UpdateProfile(ctx context.Context, username string, upd ProfileUpdate) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.update_profile", "username", username)

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	fields := map[string]any{}

	if email := strings.TrimSpace(upd.Email); email != "" && email != user.Email {
		if taken, err := s.Repo.ExistsByEmail(ctx, email); err != nil {
			return nil, err
		} else if taken {
			return nil, ErrConflict
		}
		fields["email"] = email
	}
	if fullName := strings.TrimSpace(upd.FullName); fullName != "" {
		fields["full_name"] = fullName
	}
	if err := s.Repo.UpdateProfileFields(ctx, user.ID, fields); err != nil {
		return nil, err
	}

	if strings.TrimSpace(upd.Password) != "" {
		pwHash, err := hash.HashPassword(upd.Password)
		if err != nil {
			return nil, err
		}
		if err := s.Repo.UpdatePassword(ctx, user.ID, pwHash); err != nil {
			return nil, err
		}
		l.Info("password_changed")
		s.publishEvent(ctx, "user_password_changed", username)
	}

	l.Info("profile_updated")
	return s.Repo.FindByID(ctx, user.ID)
}

// SetActive toggles the account flag. Deactivation does not revoke the
// session immediately; the next login attempt fails uniformly.
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) (*models.User, error) {
	if err := s.Repo.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Repo.FindByID(ctx, userID)
}

func (s *UserService) publishEvent(ctx context.Context, eventType, username string) {
	if s.Events == nil {
		return
	}
	event := map[string]any{"type": eventType, "username": username}
	if err := s.Events.PublishEvent(ctx, username, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", eventType, "error", err)
	}
}
