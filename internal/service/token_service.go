package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"admin-dash/internal/domain"
)

// TokenService emite y valida access tokens firmados, y genera los
// tokens opacos (sesión, reset, verificación).
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
}

type Claims struct {
	AccountID string      `json:"uid"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

func NewTokenService(secret string, accessTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &TokenService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    "admin-dash",
	}
}

// IssueAccess firma un access token stateless con expiración.
func (s *TokenService) IssueAccess(account domain.Account) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := Claims{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseAccess valida firma y expiración; distingue expirado de inválido.
func (s *TokenService) ParseAccess(tokenString string) (Claims, error) {
	if len(s.secret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrTokenInvalid
	}
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.AccountID) == "" {
		return false
	}
	if claims.Subject != claims.AccountID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}

// NewOpaqueToken genera 32 bytes aleatorios en hex. Se usa tanto para
// tokens de sesión como para tokens crudos de reset/verificación.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashToken calcula el digest sha256 de un token crudo. Solo el digest
// se persiste; el token en claro viaja fuera de banda.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
