package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/vuviet/userservice/internal/models"
	"github.com/vuviet/userservice/pkg/hash"
	"github.com/vuviet/userservice/pkg/logging"
)

var seedRoles = []models.Role{
	{Name: models.RoleStudent, Description: "Student role - can take quizzes"},
	{Name: models.RoleTeacher, Description: "Teacher role - can create and manage quizzes"},
	{Name: models.RoleAdmin, Description: "Admin role - full system access"},
}

// EnsureDefaults seeds the role catalog and the default admin account
// when absent. Idempotent across restarts and concurrent instances.
func (r *GormRepo) EnsureDefaults(ctx context.Context, adminPassword string) error {
	l := logging.FromContext(ctx).With("svc", "repo.seed")

	for _, role := range seedRoles {
		role := role
		tx := r.DB.WithContext(ctx).Where("name = ?", role.Name).FirstOrCreate(&role)
		if tx.Error != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, tx.Error)
		}
		if tx.RowsAffected > 0 {
			l.Info("created role", "role", role.Name)
		}
	}

	var admin models.User
	err := r.DB.WithContext(ctx).Where("username = ?", "admin").First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("look up default admin: %w", err)
	}

	adminRole, err := r.FindRoleByName(ctx, models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("resolve admin role: %w", err)
	}

	pwHash, err := hash.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin = models.User{
		Username:     "admin",
		Email:        "admin@gmail.com",
		FullName:     "System Administrator",
		PasswordHash: pwHash,
		RoleID:       adminRole.ID,
		Active:       true,
	}
	if err := r.DB.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}
	l.Info("created default admin user")
	return nil
}
