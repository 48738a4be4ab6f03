package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vuviet/userservice/internal/middleware"
	"github.com/vuviet/userservice/internal/models"
)

type Deps struct {
	AuthHandler *AuthHTTP
	UserHandler *UserHTTP
	Gate        *middleware.Auth
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	// The gate runs on every route and never rejects by itself; the
	// groups below decide what an unauthenticated request may reach.
	e.Use(d.Gate.Authenticate)

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)
	e.POST("/logout", d.AuthHandler.Logout)

	private := e.Group("")
	private.Use(middleware.RequireAuth)
	private.GET("/me", d.AuthHandler.Me)
	private.PUT("/profile", d.UserHandler.UpdateProfile)

	admin := e.Group("/users")
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.PUT("/:id/role", d.UserHandler.UpdateRole)
	admin.PUT("/:id/activate", d.UserHandler.Activate)
	admin.PUT("/:id/deactivate", d.UserHandler.Deactivate)
}
