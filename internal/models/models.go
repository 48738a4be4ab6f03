package models

import "time"

// Built-in role names, seeded at startup. The catalog is extensible;
// these three always exist.
const (
	RoleStudent = "STUDENT"
	RoleTeacher = "TEACHER"
	RoleAdmin   = "ADMIN"
)

type Role struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"uniqueIndex;not null"     json:"name"`
	Description string `json:"description"`
}

// User is the identity record. The refresh-token field pair on this row
// is the only server-side session state: at most one live refresh token
// per user, replaced on login and cleared on logout, password change and
// role change.
type User struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Username           string     `gorm:"uniqueIndex;not null"     json:"username"`
	Email              string     `gorm:"uniqueIndex;not null"     json:"email"`
	FullName           string     `json:"full_name"`
	PasswordHash       string     `gorm:"not null"                 json:"-"`
	RoleID             uint       `gorm:"not null"                 json:"-"`
	Role               Role       `gorm:"foreignKey:RoleID"        json:"role"`
	Active             bool       `gorm:"not null;default:true"    json:"active"`
	RefreshToken       *string    `gorm:"uniqueIndex"              json:"-"`
	RefreshTokenExpiry *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
}
