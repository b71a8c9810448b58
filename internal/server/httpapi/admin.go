package httpapi

import (
	"errors"
	"net/http"

	"github.com/dealerdesk/dealerdesk/internal/common"
	"github.com/gin-gonic/gin"
)

type createSalespersonRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Slug     string `json:"slug" binding:"required"`
	Title    string `json:"title"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *Handler) listSalespeople(c *gin.Context) {
	list, err := h.auth.ListSalespeople(c.Request.Context())
	if err != nil {
		h.log.Error(c.Request.Context(), "salespeople list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgServerError})
		return
	}

	out := make([]gin.H, 0, len(list))
	for _, u := range list {
		out = append(out, gin.H{
			"id":        u.ID,
			"email":     u.Email,
			"name":      u.Name,
			"slug":      u.Slug,
			"title":     u.Title,
			"phone":     u.Phone,
			"isActive":  u.IsActive,
			"lastLogin": u.LastLogin,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "salespeople": out})
}

func (h *Handler) createSalesperson(c *gin.Context) {
	var req createSalespersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "name, email, slug and password are required"})
		return
	}

	u, err := h.auth.CreateSalesperson(c.Request.Context(), req.Name, req.Email, req.Slug, req.Title, req.Phone, req.Password)
	if err != nil {
		h.log.Error(c.Request.Context(), "salesperson create failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgServerError})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "salesperson": gin.H{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"slug":  u.Slug,
	}})
}

func (h *Handler) resetSalespersonPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "password is required"})
		return
	}

	err := h.auth.ResetSalespersonPassword(c.Request.Context(), c.Param("id"), req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Salesperson not found"})
			return
		}
		h.log.Error(c.Request.Context(), "password reset failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgServerError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) setSalespersonActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "active is required"})
		return
	}

	err := h.auth.SetSalespersonActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Salesperson not found"})
			return
		}
		h.log.Error(c.Request.Context(), "active flag update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": msgServerError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
