package handlers

import (
	"context"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"temanagement/api/internal/config"
	"temanagement/api/internal/middleware"
	"temanagement/api/internal/models"
	"temanagement/api/internal/service"
)

// Probe is a named dependency check reported by the health endpoint.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	guard       *middleware.Guard
	probes      []Probe
	startedAt   time.Time
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, auth *service.AuthService, guard *middleware.Guard, probes ...Probe) HandlerSet {
	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		guard:       guard,
		probes:      probes,
		startedAt:   time.Now(),
	}
}

// Register mounts every route on router behind the guard. Each route states
// its access rule; a route registered on router without one requires a
// valid token.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	table := middleware.NewRouteTable()
	router.Use(h.guard.Enforce(table))

	r := routes{group: router, table: table}
	r.handle(http.MethodGet, "", middleware.Public(), h.Root)
	r.handle(http.MethodGet, "/health", middleware.Public(), h.Health)

	r.handle(http.MethodPost, "/auth/login", middleware.Public(), h.Login)
	r.handle(http.MethodPost, "/auth/refresh", middleware.Public(), h.Refresh)

	r.handle(http.MethodPost, "/auth/logout", middleware.Authenticated(), h.Logout)
	r.handle(http.MethodGet, "/auth/me", middleware.Authenticated(), h.Me)
	r.handle(http.MethodPost, "/auth/change-password", middleware.Authenticated(), h.ChangePassword)

	r.handle(http.MethodPost, "/auth/users/:id/unlock",
		middleware.Roles(models.UserRoleAdmin),
		h.AdminUnlockUser,
	)
	r.handle(http.MethodDelete, "/auth/users/:id/session",
		middleware.Roles(models.UserRoleAdmin, models.UserRoleManager),
		h.AdminRevokeSession,
	)
}

type routes struct {
	group *gin.RouterGroup
	table *middleware.RouteTable
}

func (r routes) handle(method, relativePath string, access middleware.Access, handler gin.HandlerFunc) {
	r.table.Set(method, path.Join(r.group.BasePath(), relativePath), access)
	r.group.Handle(method, relativePath, handler)
}
