package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vuviet/userservice/internal/middleware"
	"github.com/vuviet/userservice/internal/service"
	"github.com/vuviet/userservice/internal/transport"
	"github.com/vuviet/userservice/pkg/logging"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update_role")

	userID, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req transport.UpdateRoleRequest
	if err := c.Bind(&req); err != nil || req.RoleName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "roleName is required")
	}

	user, err := h.Svc.UpdateRole(ctx, userID, req.RoleName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "user not found")
		case errors.Is(err, service.ErrRoleNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "role not found")
		default:
			l.Error("update_role_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "role update failed")
		}
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *UserHTTP) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user_update_profile")

	username, ok := c.Get(middleware.CtxUsername).(string)
	if !ok || username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "unauthenticated")
	}

	var req transport.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.UpdateProfile(ctx, username, service.ProfileUpdate{
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusBadRequest, "email already exists")
		case errors.Is(err, service.ErrNotFound):
			return echo.NewHTTPError(http.StatusBadRequest, "user not found")
		default:
			l.Error("update_profile_error", "status", 500, "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "profile update failed")
		}
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *UserHTTP) Activate(c echo.Context) error {
	return h.setActive(c, true)
}

func (h *UserHTTP) Deactivate(c echo.Context) error {
	return h.setActive(c, false)
}

func (h *UserHTTP) setActive(c echo.Context, active bool) error {
	ctx := c.Request().Context()

	userID, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	user, err := h.Svc.SetActive(ctx, userID, active)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "update failed")
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
