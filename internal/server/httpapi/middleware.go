package httpapi

import (
	"net/http"

	"github.com/dealerdesk/dealerdesk/internal/server/models"
	"github.com/dealerdesk/dealerdesk/internal/server/ratelimit"
	"github.com/dealerdesk/dealerdesk/internal/server/session"
	"github.com/gin-gonic/gin"
)

const claimsKey = "sessionClaims"

// requireRole guards an endpoint with a role-scoped session cookie.
// The role claim is checked in addition to the cookie name, so a token
// issued for one scope presented under another scope's cookie is
// rejected. A super-admin session never passes a per-user guard.
func (h *Handler) requireRole(role models.Role) gin.HandlerFunc {
	cookieName := session.CookieName(role)
	return func(c *gin.Context) {
		value, err := c.Cookie(cookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}

		claims, ok := h.sessions.Read(value)
		if !ok || claims.Role != role {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// rateLimit gates a request group by (action class, client IP) and
// answers 429 with a retry-after hint when the window is full.
func (h *Handler) rateLimit(class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ratelimit.ClientIP(c.GetHeader("X-Forwarded-For"))
		res := h.limiter.Check(c.Request.Context(), class, ip)
		if !res.Allowed {
			tooManyRequests(c, res)
			return
		}
		c.Next()
	}
}
