package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/vuviet/userservice/internal/models"
	"github.com/vuviet/userservice/internal/repo"
	"github.com/vuviet/userservice/pkg/hash"
	"github.com/vuviet/userservice/pkg/logging"
	"github.com/vuviet/userservice/pkg/tokens"
)

// EventPublisher pushes auth events to the event stream. Publishing is
// best-effort; failures are logged and never fail the request.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

type AuthService struct {
	Repo       *repo.GormRepo
	Tokens     *tokens.Manager
	RefreshTTL time.Duration
	Events     EventPublisher
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	User         *models.User
}

// Register creates a new active account with the default STUDENT role.
func (s *AuthService) Register(ctx context.Context, username, password, email, fullName string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register", "username", username)

	if taken, err := s.Repo.ExistsByUsername(ctx, username); err != nil {
		return nil, err
	} else if taken {
		l.Warn("register_failed", "reason", "username already exists")
		return nil, ErrConflict
	}
	if taken, err := s.Repo.ExistsByEmail(ctx, email); err != nil {
		return nil, err
	} else if taken {
		l.Warn("register_failed", "reason", "email already exists")
		return nil, ErrConflict
	}

	role, err := s.Repo.FindRoleByName(ctx, models.RoleStudent)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := models.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: pwHash,
		RoleID:       role.ID,
		Role:         *role,
		Active:       true,
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, err
	}

	l.Info("user_registered")
	s.publish(ctx, "user_registered", username)
	return &user, nil
}

// Login verifies the credential and issues a fresh token pair. The
// stored refresh token is replaced unconditionally, so a second login
// invalidates the session of the first.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", username)

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active || !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	accessToken, accessExp, err := s.Tokens.IssueAccess(user.Username, user.ID, user.Email, user.Role.Name)
	if err != nil {
		return nil, err
	}

	refreshToken := tokens.NewRefreshValue()
	refreshExp := time.Now().UTC().Add(s.RefreshTTL)
	if err := s.Repo.StoreRefreshToken(ctx, user.ID, refreshToken, refreshExp); err != nil {
		return nil, err
	}

	l.Info("login_successful")
	s.publish(ctx, "user_logged_in", username)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		User:         user,
	}, nil
}

// Refresh exchanges a stored refresh token for a new access token
// carrying the user's current role and email. The refresh token itself
// is kept, not rotated. An expired entry is cleared on the attempt so a
// retry fails as unknown rather than expired.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.Repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("refresh_failed", "reason", "token not found")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	if user.RefreshTokenExpiry == nil || user.RefreshTokenExpiry.Before(time.Now().UTC()) {
		if err := s.Repo.ClearRefreshToken(ctx, user.ID); err != nil {
			return nil, err
		}
		l.Warn("refresh_failed", "reason", "token expired", "username", user.Username)
		return nil, ErrRefreshTokenExpired
	}

	accessToken, accessExp, err := s.Tokens.IssueAccess(user.Username, user.ID, user.Email, user.Role.Name)
	if err != nil {
		return nil, err
	}

	l.Info("token_refreshed", "username", user.Username)

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   user.RefreshTokenExpiry.UTC(),
		User:         user,
	}, nil
}

// Logout clears the session owning the presented refresh token. An
// unknown or already-cleared token is not an error: logout is
// idempotent and always succeeds from the caller's perspective.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if refreshToken == "" {
		return nil
	}

	user, err := s.Repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if err := s.Repo.ClearRefreshToken(ctx, user.ID); err != nil {
		return err
	}

	l.Info("logout_successful", "username", user.Username)
	s.publish(ctx, "user_logged_out", user.Username)
	return nil
}

func (s *AuthService) publish(ctx context.Context, eventType, username string) {
	if s.Events == nil {
		return
	}
	event := map[string]any{"type": eventType, "username": username}
	if err := s.Events.PublishEvent(ctx, username, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", eventType, "error", err)
	}
}
