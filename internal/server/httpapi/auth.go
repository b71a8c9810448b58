package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dealerdesk/dealerdesk/internal/common"
	"github.com/dealerdesk/dealerdesk/internal/server/models"
	"github.com/dealerdesk/dealerdesk/internal/server/ratelimit"
	"github.com/dealerdesk/dealerdesk/internal/server/services"
	"github.com/dealerdesk/dealerdesk/internal/server/session"
	"github.com/gin-gonic/gin"
)

// User-visible failure strings. Short and non-diagnostic on purpose;
// the invalid-credentials body must be byte-identical whether the email
// exists or the password is wrong.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgDeactivated        = "Your account has been deactivated. Please contact an administrator."
	msgServerError        = "Server error"
	msgTooManyRequests    = "Too many requests"

	// msgForgotPassword is returned for every forgot-password call,
	// hit or miss, so responses reveal nothing about which emails
	// exist.
	msgForgotPassword = "If that email is on file, our team has been notified and will reset the password manually."
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Action   string `json:"action"`
}

func tooManyRequests(c *gin.Context, res ratelimit.Result) {
	retryAfter := int(time.Until(res.ResetAt).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success":    false,
		"error":      msgTooManyRequests,
		"retryAfter": retryAfter,
	})
}

// authEndpoint returns the POST handler shared by the admin and
// salesperson auth endpoints: login by default, forgot-password when
// the body says so.
func (h *Handler) authEndpoint(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req authRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
			return
		}

		if req.Action == "forgot_password" {
			h.forgotPassword(c, role, req)
			return
		}
		h.login(c, role, req)
	}
}

func (h *Handler) login(c *gin.Context, role models.Role, req authRequest) {
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email and password are required"})
		return
	}

	ip := ratelimit.ClientIP(c.GetHeader("X-Forwarded-For"))
	if res := h.limiter.Check(c.Request.Context(), ratelimit.ClassLogin, ip); !res.Allowed {
		tooManyRequests(c, res)
		return
	}

	token, summary, err := h.auth.Login(c.Request.Context(), role, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorDeactivated):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": msgDeactivated})
		case errors.Is(err, common.ErrorUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": msgInvalidCredentials})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgServerError})
		}
		return
	}

	h.sessions.SetCookie(c.Writer, session.CookieName(role), token)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": summary})
}

func (h *Handler) forgotPassword(c *gin.Context, role models.Role, req authRequest) {
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email is required"})
		return
	}

	ip := ratelimit.ClientIP(c.GetHeader("X-Forwarded-For"))
	if res := h.limiter.Check(c.Request.Context(), ratelimit.ClassPasswordReset, ip); !res.Allowed {
		tooManyRequests(c, res)
		return
	}

	h.auth.ForgotPassword(c.Request.Context(), role, req.Email)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msgForgotPassword})
}

// superAdminLogin handles the degenerate single-shared-secret variant.
func (h *Handler) superAdminLogin(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Password is required"})
		return
	}

	ip := ratelimit.ClientIP(c.GetHeader("X-Forwarded-For"))
	if res := h.limiter.Check(c.Request.Context(), ratelimit.ClassLogin, ip); !res.Allowed {
		tooManyRequests(c, res)
		return
	}

	token, summary, err := h.auth.SuperAdminLogin(c.Request.Context(), req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": msgInvalidCredentials})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgServerError})
		return
	}

	h.sessions.SetCookie(c.Writer, session.CookieName(models.RoleSuperAdmin), token)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": summary})
}

// introspect reports whether the request carries a live session for the
// role. It never fails: missing, malformed, or expired cookies yield
// {authenticated:false}.
func (h *Handler) introspect(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(session.CookieName(role))
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
			return
		}

		claims, ok := h.sessions.Read(value)
		if !ok || claims.Role != role {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"authenticated": true,
			"user": services.UserSummary{
				Email:      claims.Email,
				Name:       claims.Name,
				Slug:       claims.Slug,
				SuperAdmin: claims.SuperAdmin,
			},
		})
	}
}

// logout clears the role's session cookie. Idempotent: clearing an
// absent cookie is still a success.
func (h *Handler) logout(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.sessions.Revoke(c.Writer, session.CookieName(role))
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
