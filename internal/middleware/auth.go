package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"temanagement/api/internal/models"
	"temanagement/api/internal/repository"
	"temanagement/api/internal/respond"
	"temanagement/api/internal/security"
)

const (
	currentUserKey = "current_user"
	claimsKey      = "access_claims"
)

type AccessVerifier interface {
	VerifyAccessToken(token string) (security.Identity, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (models.User, error)
}

// Guard authenticates bearer tokens against the live credential record and
// enforces per-route access rules.
type Guard struct {
	tokens AccessVerifier
	users  UserLookup
	log    zerolog.Logger
}

func NewGuard(tokens AccessVerifier, users UserLookup, log zerolog.Logger) *Guard {
	return &Guard{tokens: tokens, users: users, log: log}
}

// Require returns the middleware enforcing access.
func (g *Guard) Require(access Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		g.enforce(c, access)
	}
}

// Enforce applies the table's rule for the matched route. Install it on
// a group before registering routes; unlisted routes need a valid token.
func (g *Guard) Enforce(table *RouteTable) gin.HandlerFunc {
	return func(c *gin.Context) {
		g.enforce(c, table.Lookup(c.Request.Method, c.FullPath()))
	}
}

func (g *Guard) enforce(c *gin.Context, access Access) {
	if access.IsPublic() {
		c.Next()
		return
	}

	user, ok := g.authenticate(c)
	if !ok {
		return
	}

	if !access.Allows(user.Role) {
		respond.Error(c, http.StatusForbidden, "forbidden", "Insufficient permissions")
		return
	}

	c.Next()
}

func (g *Guard) authenticate(c *gin.Context) (models.User, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		respond.Error(c, http.StatusUnauthorized, "missing_token", "Unauthorized")
		return models.User{}, false
	}

	tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

	claims, err := g.tokens.VerifyAccessToken(tokenStr)
	if err != nil {
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "Unauthorized")
		return models.User{}, false
	}

	user, err := g.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			g.log.Error().Err(err).Int64("user_id", claims.UserID).Msg("guard user lookup failed")
			respond.Internal(c, http.StatusInternalServerError, err, false)
			return models.User{}, false
		}
		respond.Error(c, http.StatusUnauthorized, "user_not_found", "Unauthorized")
		return models.User{}, false
	}

	if user.Email != claims.Email {
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "Unauthorized")
		return models.User{}, false
	}

	if !user.IsActive() {
		respond.Error(c, http.StatusUnauthorized, "user_inactive", "Unauthorized")
		return models.User{}, false
	}

	c.Set(claimsKey, claims)
	c.Set(currentUserKey, user)
	return user, true
}

// CurrentUser returns the identity attached by Guard.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}
