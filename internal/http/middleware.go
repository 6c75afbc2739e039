package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"admin-dash/internal/domain"
	"admin-dash/internal/repository"
	"admin-dash/internal/service"
)

// bearerToken extrae el token del header Authorization.
func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	return strings.TrimSpace(header[len("Bearer "):]), true
}

// accountChecks aplica los pasos comunes del gate: cuenta activa y no
// bloqueada, y la adjunta al contexto.
func accountChecks(c *gin.Context, account domain.Account) bool {
	if !account.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account disabled"})
		c.Abort()
		return false
	}
	if account.Locked(time.Now().UTC()) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "account locked"})
		c.Abort()
		return false
	}
	c.Set(authAccountKey, account)
	return true
}

// AuthMiddleware valida access tokens firmados y resuelve la cuenta.
// Distingue token faltante, inválido y expirado.
func AuthMiddleware(tokens *service.TokenService, accounts repository.AccountRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims, err := tokens.ParseAccess(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			} else {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			}
			c.Abort()
			return
		}

		account, err := accounts.GetByID(c.Request.Context(), claims.AccountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve account"})
			}
			c.Abort()
			return
		}

		if !accountChecks(c, account) {
			return
		}
		c.Next()
	}
}

// SessionAuthMiddleware valida tokens de sesión opacos contra el store y
// actualiza last_used solo de esa sesión.
func SessionAuthMiddleware(sessions repository.SessionRepository, accounts repository.AccountRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		session, err := sessions.GetByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve session"})
			}
			c.Abort()
			return
		}

		if err := sessions.Touch(c.Request.Context(), session.Token, time.Now().UTC()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve session"})
			c.Abort()
			return
		}

		account, err := accounts.GetByID(c.Request.Context(), session.AccountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve account"})
			}
			c.Abort()
			return
		}

		if !accountChecks(c, account) {
			return
		}
		c.Set(sessionTokenKey, session.Token)
		c.Next()
	}
}

// RequireRole exige pertenencia al conjunto de roles. Admin satisface
// cualquier chequeo de rol.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := GetAuthAccount(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if account.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if account.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		c.Abort()
	}
}

// OwnerOrAdmin permite el acceso al dueño del recurso o a un admin.
func OwnerOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := GetAuthAccount(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if account.IsAdmin() {
			c.Next()
			return
		}
		resourceID := strings.TrimSpace(c.Param(param))
		if resourceID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource id not provided"})
			c.Abort()
			return
		}
		if resourceID != account.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "you can only access your own resources"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireVerifiedEmail bloquea cuentas sin email verificado.
func RequireVerifiedEmail() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := GetAuthAccount(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if !account.IsEmailVerified {
			c.JSON(http.StatusForbidden, gin.H{"error": "email verification required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Tabla fija de permisos por rol. Admin se resuelve antes de consultarla.
var rolePermissions = map[domain.Role]map[string][]string{
	domain.RoleUser: {
		"read":   {"own_profile", "own_orders"},
		"write":  {"own_profile"},
		"delete": {"own_profile"},
	},
}

// RequirePermission consulta la tabla fija de acción/recurso.
func RequirePermission(action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := GetAuthAccount(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}
		if account.IsAdmin() {
			c.Next()
			return
		}
		allowed := rolePermissions[account.Role][action]
		for _, res := range allowed {
			if res == "*" || res == resource {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot " + action + " " + resource})
		c.Abort()
	}
}

// ThrottleMiddleware limita intentos de autenticación por IP cliente.
func ThrottleMiddleware(limiter service.LoginRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many authentication attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}
