package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authmw "github.com/vuviet/userservice/internal/middleware"
	"github.com/vuviet/userservice/internal/models"
	"github.com/vuviet/userservice/internal/repo"
	"github.com/vuviet/userservice/internal/service"
	"github.com/vuviet/userservice/internal/transport"
	"github.com/vuviet/userservice/pkg/tokens"
)

type httpEnv struct {
	e      *echo.Echo
	db     *gorm.DB
	tokens *tokens.Manager
}

func newHTTPEnv(t *testing.T) *httpEnv {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Role{}, &models.User{}))

	rp := repo.NewGormRepo(gdb)
	require.NoError(t, rp.EnsureDefaults(context.Background(), "admin-secret"))

	tm, err := tokens.NewManager([]byte("test-jwt-secret"), 15*time.Minute)
	require.NoError(t, err)

	authSvc := &service.AuthService{
		Repo:       rp,
		Tokens:     tm,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	userSvc := &service.UserService{Repo: rp}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: authSvc, Users: userSvc, AccessTTL: 15 * time.Minute},
		UserHandler: &UserHTTP{Svc: userSvc},
		Gate:        authmw.NewAuth(tm),
	})

	return &httpEnv{e: e, db: gdb, tokens: tm}
}

type reqOpt func(*http.Request)

func withBearer(token string) reqOpt {
	return func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
}

func withCookie(name, value string) reqOpt {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

func (env *httpEnv) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *httpEnv) registerAndLogin(t *testing.T, username, password string) transport.TokenResponse {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/register", map[string]string{
		"username": username,
		"password": password,
		"email":    username + "@x.com",
		"fullName": "Test User",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	return env.login(t, username, password)
}

func (env *httpEnv) login(t *testing.T, username, password string) transport.TokenResponse {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res transport.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestRegister_ThenConflict(t *testing.T) {
	env := newHTTPEnv(t)

	payload := map[string]string{
		"username": "alice",
		"password": "secret123",
		"email":    "alice@x.com",
		"fullName": "Alice A",
	}

	rec := env.do(t, http.MethodPost, "/register", payload)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "registered", rec.Body.String())

	rec = env.do(t, http.MethodPost, "/register", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_SetsCookiesAndReturnsSummary(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, "alice@x.com", res.Email)
	assert.Equal(t, models.RoleStudent, res.Role)
	assert.NotZero(t, res.ID)

	rec := env.do(t, http.MethodPost, "/login", map[string]string{
		"username": "alice", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	access := cookieByName(t, rec, "accessToken")
	assert.True(t, access.HttpOnly)
	assert.Equal(t, "/", access.Path)
	assert.Equal(t, int((15 * time.Minute).Seconds()), access.MaxAge)

	refresh := cookieByName(t, rec, "refreshToken")
	assert.True(t, refresh.HttpOnly)
	assert.NotEmpty(t, refresh.Value)
}

func TestLogin_BadCredentials(t *testing.T) {
	env := newHTTPEnv(t)
	env.registerAndLogin(t, "alice", "secret123")

	for _, payload := range []map[string]string{
		{"username": "alice", "password": "wrong"},
		{"username": "nobody", "password": "secret123"},
	} {
		rec := env.do(t, http.MethodPost, "/login", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestMe_WithAndWithoutToken(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	rec := env.do(t, http.MethodGet, "/me", nil, withBearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var me transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, models.RoleStudent, me.Role)
	assert.True(t, me.Active)
	assert.False(t, me.CreatedAt.IsZero())

	rec = env.do(t, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/me", nil, withBearer("garbage"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The access cookie works as a bearer fallback.
	rec = env.do(t, http.MethodGet, "/me", nil, withCookie("accessToken", res.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_ReissuesAccessKeepsRefresh(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	rec := env.do(t, http.MethodPost, "/refresh", nil, withCookie("refreshToken", res.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed transport.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, res.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	// Only the access cookie is refreshed.
	access := cookieByName(t, rec, "accessToken")
	assert.Equal(t, refreshed.AccessToken, access.Value)

	rec = env.do(t, http.MethodPost, "/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/refresh", nil, withCookie("refreshToken", "never-issued"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh_PicksUpRoleChange_OldTokenStaysStale(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	oldClaims, err := env.tokens.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, oldClaims.Role)

	// Role changed out of band, without touching the session row: the
	// next refresh mints a token with the current role while the
	// already-issued token keeps asserting the old one until expiry.
	var teacher models.Role
	require.NoError(t, env.db.Where("name = ?", models.RoleTeacher).First(&teacher).Error)
	require.NoError(t, env.db.Model(&models.User{}).
		Where("username = ?", "alice").
		Update("role_id", teacher.ID).Error)

	rec := env.do(t, http.MethodPost, "/refresh", nil, withCookie("refreshToken", res.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var refreshed transport.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &refreshed))
	assert.Equal(t, models.RoleTeacher, refreshed.Role)

	newClaims, err := env.tokens.ParseAccess(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, newClaims.Role)

	staleClaims, err := env.tokens.ParseAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, staleClaims.Role)
}

func TestAdminRoleChange_RevokesSessionAndRequiresRelogin(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")
	admin := env.login(t, "admin", "admin-secret")

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/users/%d/role", res.ID),
		transport.UpdateRoleRequest{RoleName: models.RoleTeacher},
		withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.RoleTeacher, updated.Role)

	// The old session is revoked; refresh fails until alice logs in again.
	rec = env.do(t, http.MethodPost, "/refresh", nil, withCookie("refreshToken", res.RefreshToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	relogin := env.login(t, "alice", "secret123")
	assert.Equal(t, models.RoleTeacher, relogin.Role)
}

func TestAdminEndpoints_RoleGate(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	rec := env.do(t, http.MethodPut, fmt.Sprintf("/users/%d/role", res.ID),
		transport.UpdateRoleRequest{RoleName: models.RoleTeacher},
		withBearer(res.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/users/%d/role", res.ID),
		transport.UpdateRoleRequest{RoleName: models.RoleTeacher})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_ClearsCookiesAndIsIdempotent(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/logout", nil, withCookie("refreshToken", res.RefreshToken))
		require.Equal(t, http.StatusOK, rec.Code, "logout attempt %d", i+1)
		assert.Equal(t, "logged out", rec.Body.String())

		access := cookieByName(t, rec, "accessToken")
		assert.Empty(t, access.Value)
		assert.Negative(t, access.MaxAge)

		refresh := cookieByName(t, rec, "refreshToken")
		assert.Empty(t, refresh.Value)
		assert.Negative(t, refresh.MaxAge)
	}

	// Cookies are cleared even with no refresh cookie at all.
	rec := env.do(t, http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookieByName(t, rec, "accessToken")
	cookieByName(t, rec, "refreshToken")
}

func TestUpdateProfile_PasswordChangeForcesRelogin(t *testing.T) {
	env := newHTTPEnv(t)
	res := env.registerAndLogin(t, "alice", "secret123")

	rec := env.do(t, http.MethodPut, "/profile",
		transport.UpdateProfileRequest{Password: "newsecret", FullName: "Alice A"},
		withBearer(res.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Alice A", updated.FullName)

	rec = env.do(t, http.MethodPost, "/refresh", nil, withCookie("refreshToken", res.RefreshToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.login(t, "alice", "newsecret")
}

func TestHealthEndpoints(t *testing.T) {
	env := newHTTPEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/ready", nil).Code)
}
