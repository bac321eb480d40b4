package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"temanagement/api/internal/authtest"
	"temanagement/api/internal/models"
	"temanagement/api/internal/respond"
	"temanagement/api/internal/security"
)

type guardFixture struct {
	store  *authtest.Store
	tokens *security.TokenService
	guard  *Guard
	engine *gin.Engine
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  "guard-access",
		RefreshSecret: "guard-refresh",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	f := &guardFixture{store: authtest.NewStore(), tokens: tokens}
	guard := NewGuard(tokens, f.store, zerolog.Nop())
	f.guard = guard

	ok := func(c *gin.Context) {
		user, _ := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	}

	f.engine = gin.New()
	f.engine.Use(RequestID())
	f.engine.GET("/public", guard.Require(Public()), ok)
	f.engine.GET("/me", guard.Require(Authenticated()), ok)
	f.engine.GET("/admin", guard.Require(Roles(models.UserRoleAdmin)), ok)
	f.engine.GET("/staff", guard.Require(Roles(models.UserRoleAdmin, models.UserRoleManager)), ok)
	return f
}

func (f *guardFixture) addUser(t *testing.T, email string, role models.UserRole) (int64, string) {
	t.Helper()
	id := f.store.AddUser(models.User{Email: email, Role: role})
	token, err := f.tokens.IssueAccessToken(security.Identity{UserID: id, Email: email, Role: role})
	require.NoError(t, err)
	return id, token
}

func (f *guardFixture) do(path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body respond.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGuardPublicRoute(t *testing.T) {
	f := newGuardFixture(t)

	rec := f.do("/public", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestGuardRejectsMissingOrBadToken(t *testing.T) {
	f := newGuardFixture(t)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer not-a-jwt"} {
		rec := f.do("/me", header)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		body := decodeError(t, rec)
		require.Equal(t, http.StatusUnauthorized, body.StatusCode)
		require.NotEmpty(t, body.Error)
	}
}

func TestGuardAttachesIdentity(t *testing.T) {
	f := newGuardFixture(t)
	_, token := f.addUser(t, "employee@temanagement.com", models.UserRoleEmployee)

	rec := f.do("/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"email":"employee@temanagement.com"}`, rec.Body.String())
}

func TestGuardLiveChecks(t *testing.T) {
	f := newGuardFixture(t)

	deletedID, deletedToken := f.addUser(t, "gone@temanagement.com", models.UserRoleEmployee)
	f.store.SoftDelete(deletedID, time.Now())
	rec := f.do("/me", "Bearer "+deletedToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	suspendedID, suspendedToken := f.addUser(t, "paused@temanagement.com", models.UserRoleEmployee)
	f.store.Mutate(suspendedID, func(u *models.User) { u.AccountStatus = models.AccountStatusSuspended })
	rec = f.do("/me", "Bearer "+suspendedToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "user_inactive", decodeError(t, rec).Error)

	movedID, movedToken := f.addUser(t, "old@temanagement.com", models.UserRoleEmployee)
	f.store.Mutate(movedID, func(u *models.User) { u.Email = "new@temanagement.com" })
	rec = f.do("/me", "Bearer "+movedToken)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardRoles(t *testing.T) {
	f := newGuardFixture(t)
	_, admin := f.addUser(t, "admin@temanagement.com", models.UserRoleAdmin)
	_, manager := f.addUser(t, "manager@temanagement.com", models.UserRoleManager)
	_, employee := f.addUser(t, "employee@temanagement.com", models.UserRoleEmployee)

	require.Equal(t, http.StatusOK, f.do("/admin", "Bearer "+admin).Code)
	require.Equal(t, http.StatusForbidden, f.do("/admin", "Bearer "+manager).Code)
	require.Equal(t, http.StatusForbidden, f.do("/admin", "Bearer "+employee).Code)

	require.Equal(t, http.StatusOK, f.do("/staff", "Bearer "+admin).Code)
	require.Equal(t, http.StatusOK, f.do("/staff", "Bearer "+manager).Code)

	rec := f.do("/staff", "Bearer "+employee)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "forbidden", decodeError(t, rec).Error)
}

func TestGuardUsesLiveRole(t *testing.T) {
	f := newGuardFixture(t)
	id, token := f.addUser(t, "promoted@temanagement.com", models.UserRoleAdmin)
	f.store.Mutate(id, func(u *models.User) { u.Role = models.UserRoleEmployee })

	require.Equal(t, http.StatusForbidden, f.do("/admin", "Bearer "+token).Code)
}

func TestAccessAllows(t *testing.T) {
	require.True(t, Public().IsPublic())
	require.False(t, Authenticated().IsPublic())
	require.True(t, Authenticated().Allows(models.UserRoleEmployee))
	require.False(t, Roles().Allows(models.UserRoleAdmin))
	require.True(t, Roles(models.UserRoleManager).Allows(models.UserRoleManager))
}

func TestRecoveryReturnsEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), Logger(zerolog.Nop()), Recovery(zerolog.Nop()))
	engine.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "internal_server_error", body.Error)
	require.Empty(t, body.Detail)
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	require.True(t, validRequestID("abc-123"))
	require.False(t, validRequestID(""))
	require.False(t, validRequestID("has space"))
	require.False(t, validRequestID(strings.Repeat("a", maxRequestIDLen+1)))
}

func TestEnforceDeniesUnlistedRoutes(t *testing.T) {
	f := newGuardFixture(t)
	_, admin := f.addUser(t, "admin@temanagement.com", models.UserRoleAdmin)
	_, employee := f.addUser(t, "employee@temanagement.com", models.UserRoleEmployee)

	table := NewRouteTable()
	table.Set(http.MethodGet, "/v1/open", Public())
	table.Set(http.MethodGet, "/v1/admin/:id", Roles(models.UserRoleAdmin))

	group := f.engine.Group("/v1")
	group.Use(f.guard.Enforce(table))
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	group.GET("/open", ok)
	group.GET("/admin/:id", ok)
	group.GET("/forgotten", ok)

	require.Equal(t, http.StatusNoContent, f.do("/v1/open", "").Code)

	require.Equal(t, http.StatusUnauthorized, f.do("/v1/forgotten", "").Code)
	require.Equal(t, http.StatusNoContent, f.do("/v1/forgotten", "Bearer "+employee).Code)

	require.Equal(t, http.StatusForbidden, f.do("/v1/admin/7", "Bearer "+employee).Code)
	require.Equal(t, http.StatusNoContent, f.do("/v1/admin/7", "Bearer "+admin).Code)
}

func TestRouteTableDefaultsToAuthenticated(t *testing.T) {
	table := NewRouteTable()
	table.Set(http.MethodPost, "/api/auth/login", Public())

	require.True(t, table.Lookup(http.MethodPost, "/api/auth/login").IsPublic())
	require.False(t, table.Lookup(http.MethodGet, "/api/auth/login").IsPublic())
	require.False(t, table.Lookup(http.MethodGet, "/api/unknown").IsPublic())
}
