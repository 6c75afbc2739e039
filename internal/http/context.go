package http

import (
	"github.com/gin-gonic/gin"

	"admin-dash/internal/domain"
)

const (
	authAccountKey = "auth_account"
	sessionTokenKey = "auth_session_token"
)

// GetAuthAccount obtiene la cuenta resuelta desde el contexto.
func GetAuthAccount(c *gin.Context) (domain.Account, bool) {
	val, ok := c.Get(authAccountKey)
	if !ok {
		return domain.Account{}, false
	}
	account, ok := val.(domain.Account)
	return account, ok
}

// GetSessionToken obtiene el token de sesión del request, si la ruta se
// autenticó por sesión.
func GetSessionToken(c *gin.Context) (string, bool) {
	val, ok := c.Get(sessionTokenKey)
	if !ok {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}
