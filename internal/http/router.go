package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-dash/internal/domain"
	"admin-dash/internal/repository"
	"admin-dash/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	authH *AuthHandler,
	accountH *AccountHandler,
	tokens *service.TokenService,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	throttle service.LoginRateLimiter,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	requireAccess := AuthMiddleware(tokens, accounts)
	requireSession := SessionAuthMiddleware(sessions, accounts)

	auth := r.Group("/auth")
	auth.POST("/register", ThrottleMiddleware(throttle), authH.Register)
	auth.POST("/login", ThrottleMiddleware(throttle), authH.Login)
	auth.POST("/oauth", ThrottleMiddleware(throttle), authH.OAuthLogin)
	auth.POST("/forgot-password", ThrottleMiddleware(throttle), authH.ForgotPassword)
	auth.POST("/reset-password", authH.ResetPassword)
	auth.POST("/verify-email", authH.VerifyEmail)
	auth.POST("/logout", requireSession, authH.Logout)
	auth.GET("/me", requireAccess, authH.Me)
	auth.GET("/sessions", requireSession, authH.Sessions)
	auth.POST("/change-password", requireAccess, authH.ChangePassword)
	auth.POST("/resend-verification", requireAccess, authH.ResendVerification)

	users := r.Group("/users", requireAccess)
	users.GET("", RequireRole(domain.RoleAdmin), accountH.List)
	users.GET("/:id", OwnerOrAdmin("id"), RequirePermission("read", "own_profile"), accountH.Get)
	users.PUT("/:id", OwnerOrAdmin("id"), RequirePermission("write", "own_profile"), accountH.UpdateProfile)
	users.PATCH("/:id/active", RequireRole(domain.RoleAdmin), accountH.SetActive)
	users.PATCH("/:id/role", RequireRole(domain.RoleAdmin), accountH.SetRole)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
