package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vuviet/userservice/internal/middleware"
	"github.com/vuviet/userservice/internal/service"
	"github.com/vuviet/userservice/internal/transport"
	"github.com/vuviet/userservice/pkg/logging"
)

type AuthHTTP struct {
	Svc       *service.AuthService
	Users     *service.UserService
	AccessTTL time.Duration
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username, password and email are required")
	}

	if _, err := h.Svc.Register(ctx, req.Username, req.Password, req.Email, req.FullName); err != nil {
		if errors.Is(err, service.ErrConflict) {
			return echo.NewHTTPError(http.StatusBadRequest, "username or email already exists")
		}
		l.Error("register_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "registration failed")
	}

	return c.String(http.StatusOK, "registered")
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid username or password")
		}
		l.Error("login_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	c.SetCookie(newAuthCookie("accessToken", res.AccessToken, h.AccessTTL))
	c.SetCookie(newAuthCookie("refreshToken", res.RefreshToken, h.AccessTTL))

	return c.JSON(http.StatusOK, transport.NewTokenResponse(res.AccessToken, res.RefreshToken, res.User))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	cookie, err := c.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		l.Warn("refresh_error", "status", 400, "reason", "no refresh token cookie")
		return echo.NewHTTPError(http.StatusBadRequest, "no refresh token")
	}

	res, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid refresh token")
		case errors.Is(err, service.ErrRefreshTokenExpired):
			return echo.NewHTTPError(http.StatusBadRequest, "refresh token expired")
		default:
			l.Error("refresh_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "refresh failed")
		}
	}

	c.SetCookie(newAuthCookie("accessToken", res.AccessToken, h.AccessTTL))

	return c.JSON(http.StatusOK, transport.NewTokenResponse(res.AccessToken, res.RefreshToken, res.User))
}

// Logout clears the auth cookies unconditionally, even when revoking
// the stored token fails, so a client can always end its local session.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	var refreshToken string
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		refreshToken = cookie.Value
	}

	err := h.Svc.Logout(ctx, refreshToken)

	c.SetCookie(deleteCookie("accessToken"))
	c.SetCookie(deleteCookie("refreshToken"))

	if err != nil {
		l.Error("logout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "logout failed")
	}

	return c.String(http.StatusOK, "logged out")
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()

	username, ok := c.Get(middleware.CtxUsername).(string)
	if !ok || username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unauthenticated")
	}

	user, err := h.Users.Profile(ctx, username)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "unauthenticated")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}
