package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/vuviet/userservice/internal/models"
)

// StoreRefreshToken writes the token/expiry pair onto the user row in a
// single statement, unconditionally overwriting whatever was there.
// Row-level atomicity of the UPDATE is what keeps the one-live-token
// invariant across concurrent logins and across server processes.
func (r *GormRepo) StoreRefreshToken(ctx context.Context, userID uint, token string, expiry time.Time) error {
	result := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"refresh_token":        token,
			"refresh_token_expiry": expiry,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByRefreshToken resolves the owner of a presented refresh token by
// exact equality.
func (r *GormRepo) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Role").
		Where("refresh_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ClearRefreshToken revokes the user's session by nulling the pair.
func (r *GormRepo) ClearRefreshToken(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"refresh_token":        nil,
			"refresh_token_expiry": nil,
		}).Error
}
