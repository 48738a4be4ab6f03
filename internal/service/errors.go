package service

import "errors"

var (
	// ErrInvalidCredentials covers every login failure cause — unknown
	// username, wrong password, deactivated account — so the response
	// cannot be used to enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrConflict signals a username or email collision at registration.
	ErrConflict = errors.New("already exists")

	// ErrInvalidRefreshToken covers a presented refresh token that is
	// malformed or unknown to the store; the two are indistinguishable.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRefreshTokenExpired signals a token that was found but is past
	// its expiry; the store entry is cleared as a side effect.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	ErrNotFound     = errors.New("user not found")
	ErrRoleNotFound = errors.New("role not found")
)
