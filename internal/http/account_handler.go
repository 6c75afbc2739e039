package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-dash/internal/domain"
	"admin-dash/internal/service"
)

// AccountHandler mantiene dependencias para la administración de cuentas.
type AccountHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
}

func NewAccountHandler(logger *zap.Logger, authServ *service.AuthService) *AccountHandler {
	return &AccountHandler{
		logger:   logger,
		authServ: authServ,
	}
}

// List maneja GET /users (solo admin).
func (h *AccountHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	accounts, err := h.authServ.ListAccounts(c.Request.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list accounts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list accounts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// Get maneja GET /users/:id (dueño o admin).
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.authServ.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		h.logger.Error("get account failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not get account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateProfile maneja PUT /users/:id (dueño o admin).
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
		AvatarURL   string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid update profile request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.authServ.UpdateProfile(c.Request.Context(), c.Param("id"), req.DisplayName, req.AvatarURL)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		h.logger.Error("update profile failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// SetActive maneja PATCH /users/:id/active (solo admin). Deshabilitar es
// soft-disable: la cuenta nunca se borra desde este subsistema.
func (h *AccountHandler) SetActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set active request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.SetAccountActive(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		h.logger.Error("set active failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "account updated"})
}

// SetRole maneja PATCH /users/:id/role (solo admin).
func (h *AccountHandler) SetRole(c *gin.Context) {
	var req struct {
		Role domain.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid set role request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.SetAccountRole(c.Request.Context(), c.Param("id"), req.Role); err != nil {
		h.logger.Error("set role failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not update role"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role updated"})
}
