package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vuviet/userservice/pkg/tokens"
)

// Context keys bound by Authenticate on a successful token check.
const (
	CtxUsername = "username"
	CtxUserID   = "user_id"
	CtxRole     = "role"
)

type Auth struct {
	Tokens *tokens.Manager
}

func NewAuth(m *tokens.Manager) *Auth {
	return &Auth{Tokens: m}
}

// Authenticate is the per-request gate. It looks for a bearer token in
// the Authorization header, falling back to the accessToken cookie the
// server itself sets, and binds the caller's identity to the request on
// success. It never short-circuits: a missing or bad token leaves the
// request unauthenticated and lets downstream authorization decide, so
// public routes stay reachable even when garbage tokens are sent.
func (a *Auth) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			return next(c)
		}

		claims, err := a.Tokens.ParseAccess(tokenStr)
		if err != nil {
			return next(c)
		}

		c.Set(CtxUsername, claims.Subject)
		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		return next(c)
	}
}

// RequireAuth rejects requests the gate left unauthenticated.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Get(CtxUsername) == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unauthenticated")
		}
		return next(c)
	}
}

// RequireRole rejects authenticated callers whose role claim does not
// match. Authorization uses the role embedded in the token, not the
// current store state.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Get(CtxUsername) == nil {
				return echo.NewHTTPError(http.StatusBadRequest, "unauthenticated")
			}
			if r, ok := c.Get(CtxRole).(string); !ok || r != role {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
