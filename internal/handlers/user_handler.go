package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"footwear-wholesale/internal/apperr"
	"footwear-wholesale/internal/middleware"
	"footwear-wholesale/internal/models"
	"footwear-wholesale/internal/service"
)

// UserHandler serves registration, login and account administration.
type UserHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewUserHandler(auth *service.AuthService, logger *slog.Logger) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{auth: auth, logger: logger}
}

// POST /api/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   result.Token,
		"data":    result.User,
		"message": "registration successful, account pending approval",
	})
}

// POST /api/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
		"data":    result.User,
	})
}

// GET /api/users/me
func (h *UserHandler) Me(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, apperr.Unauthenticated("not authorized"))
		return
	}

	user, err := h.auth.Me(c.Request.Context(), ident.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, apperr.Unauthenticated("not authorized"))
		return
	}

	var update models.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), ident.UserID, update)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// PUT /api/users/me/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, h.logger, apperr.Unauthenticated("not authorized"))
		return
	}

	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	if err := h.auth.ChangePassword(c.Request.Context(), ident.UserID, req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondMessage(c, http.StatusOK, "password updated")
}

// GET /api/users (admin)
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, limit := paginationParams(c)
	users, total, err := h.auth.ListUsers(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, users, models.NewPagination(page, limit, total))
}

// PATCH /api/users/:id/approve (admin)
func (h *UserHandler) ApproveUser(c *gin.Context) {
	user, err := h.auth.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, user)
}

// roleRequest changes an account's role.
type roleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// PATCH /api/users/:id/role (admin)
func (h *UserHandler) SetUserRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}

	user, err := h.auth.SetRole(c.Request.Context(), c.Param("id"), req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondData(c, http.StatusOK, user)
}
