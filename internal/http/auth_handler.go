package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-dash/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticación.
type AuthHandler struct {
	logger   *zap.Logger
	authServ *service.AuthService
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		authServ: authServ,
	}
}

func validationFailed(c *gin.Context, details []service.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": details})
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	var details []service.FieldError
	name := strings.TrimSpace(req.Name)
	if len(name) < 2 || len(name) > 50 {
		details = append(details, service.FieldError{Field: "name", Message: "must be between 2 and 50 characters"})
	}
	details = append(details, service.ValidatePassword("password", req.Password)...)
	if len(details) > 0 {
		validationFailed(c, details)
		return
	}

	result, err := h.authServ.Register(c.Request.Context(), service.RegisterInput{
		Name:     name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		case errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": result.Account, "access_token": result.AccessToken})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.authServ.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(err, service.ErrAccountLocked):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account temporarily locked due to multiple failed login attempts"})
		case errors.Is(err, service.ErrAccountDisabled):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account disabled"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":       result.Account,
		"access_token":  result.AccessToken,
		"session_token": result.SessionToken,
	})
}

// OAuthLogin maneja POST /auth/oauth. Recibe una identidad ya verificada
// por el colaborador externo.
func (h *AuthHandler) OAuthLogin(c *gin.Context) {
	var req struct {
		Provider    string `json:"provider" binding:"required"`
		Subject     string `json:"subject" binding:"required"`
		Email       string `json:"email" binding:"omitempty,email"`
		DisplayName string `json:"display_name"`
		AvatarURL   string `json:"avatar_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid oauth request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.authServ.FederatedLogin(c.Request.Context(), service.FederatedClaim{
		Provider:    req.Provider,
		Subject:     req.Subject,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, service.ErrOAuthInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth data"})
			return
		}
		h.logger.Error("oauth login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete oauth"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": result.Account, "access_token": result.AccessToken})
}

// Logout maneja POST /auth/logout. La ruta se autentica por sesión y
// elimina exactamente esa sesión.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := GetSessionToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
		return
	}
	if err := h.authServ.Logout(c.Request.Context(), token); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Me maneja GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := GetAuthAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// Sessions maneja GET /auth/sessions.
func (h *AuthHandler) Sessions(c *gin.Context) {
	account, ok := GetAuthAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	sessions, err := h.authServ.ListSessions(c.Request.Context(), account.ID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ForgotPassword maneja POST /auth/forgot-password. La respuesta es la
// misma exista o no la cuenta.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid forgot password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrEmailSendFailure) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
			return
		}
		h.logger.Error("forgot password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "if an account with that email exists, a password reset link has been sent",
	})
}

// ResetPassword maneja POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if details := service.ValidatePassword("password", req.Password); len(details) > 0 {
		validationFailed(c, details)
		return
	}

	if _, err := h.authServ.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		if errors.Is(err, service.ErrTokenInvalidOrExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		h.logger.Error("reset password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password reset successful"})
}

// ChangePassword maneja POST /auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	account, ok := GetAuthAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid change password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if details := service.ValidatePassword("new_password", req.NewPassword); len(details) > 0 {
		validationFailed(c, details)
		return
	}

	if err := h.authServ.ChangePassword(c.Request.Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrPasswordMismatch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password incorrect"})
			return
		}
		h.logger.Error("change password failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

// VerifyEmail maneja POST /auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid verify email request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if _, err := h.authServ.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrTokenInvalidOrExpired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired token"})
			return
		}
		h.logger.Error("verify email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not verify email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email verified successfully"})
}

// ResendVerification maneja POST /auth/resend-verification.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	account, ok := GetAuthAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	if err := h.authServ.RequestEmailVerification(c.Request.Context(), account.ID); err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyVerified):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already verified"})
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
		default:
			h.logger.Error("resend verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resend verification"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "verification email sent"})
}
