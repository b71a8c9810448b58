// Package httpapi exposes the role-scoped auth endpoints and the
// admin-guarded salesperson management surface over gin.
package httpapi

import (
	"github.com/dealerdesk/dealerdesk/internal/logging"
	"github.com/dealerdesk/dealerdesk/internal/server/models"
	"github.com/dealerdesk/dealerdesk/internal/server/ratelimit"
	"github.com/dealerdesk/dealerdesk/internal/server/services"
	"github.com/dealerdesk/dealerdesk/internal/server/session"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	auth     *services.AuthService
	sessions *session.Issuer
	limiter  *ratelimit.Limiter
	log      logging.Logger
}

func NewHandler(auth *services.AuthService, sessions *session.Issuer,
	limiter *ratelimit.Limiter, log logging.Logger) *Handler {
	return &Handler{
		auth:     auth,
		sessions: sessions,
		limiter:  limiter,
		log:      log.With("module", "httpapi"),
	}
}

// NewRouter wires the three parallel auth endpoints and the admin
// surface. Each role gets POST (login / forgot-password), GET (session
// introspection) and DELETE (logout) on one path.
func (h *Handler) NewRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	auth := r.Group("/api/auth")
	{
		for role, path := range map[models.Role]string{
			models.RoleAdmin:       "/admin",
			models.RoleSalesperson: "/sales",
		} {
			auth.POST(path, h.authEndpoint(role))
			auth.GET(path, h.introspect(role))
			auth.DELETE(path, h.logout(role))
		}

		auth.POST("/superadmin", h.superAdminLogin)
		auth.GET("/superadmin", h.introspect(models.RoleSuperAdmin))
		auth.DELETE("/superadmin", h.logout(models.RoleSuperAdmin))
	}

	admin := r.Group("/api/admin")
	admin.Use(h.rateLimit(ratelimit.ClassAPI), h.requireRole(models.RoleAdmin))
	{
		admin.GET("/salespeople", h.listSalespeople)
		admin.POST("/salespeople", h.createSalesperson)
		admin.POST("/salespeople/:id/password", h.resetSalespersonPassword)
		admin.POST("/salespeople/:id/active", h.setSalespersonActive)
	}

	return r
}
