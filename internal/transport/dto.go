package transport

import (
	"time"

	"github.com/vuviet/userservice/internal/models"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateRoleRequest struct {
	RoleName string `json:"roleName"`
}

type UpdateProfileRequest struct {
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// TokenResponse is the login/refresh payload: the token pair plus an
// identity summary.
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewTokenResponse(accessToken, refreshToken string, u *models.User) TokenResponse {
	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Role:         u.Role.Name,
	}
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role.Name,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}
