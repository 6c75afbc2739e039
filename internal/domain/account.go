package domain

import "time"

// Role define los roles soportados para autorizacion.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Account es el registro central de credenciales e identidad.
// Los campos sensibles llevan json:"-" y nunca salen del servicio.
type Account struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	DisplayName     string     `json:"display_name,omitempty"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	Role            Role       `json:"role"`
	PasswordHash    string     `json:"-"`
	PasswordLogin   bool       `json:"-"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
	OAuthProvider   string     `json:"oauth_provider,omitempty"`
	OAuthSubject    string     `json:"-"`
	FailedLogins    int        `json:"-"`
	LockedUntil     *time.Time `json:"-"`
	VerifyTokenHash string     `json:"-"`
	VerifyTokenExp  *time.Time `json:"-"`
	ResetTokenHash  string     `json:"-"`
	ResetTokenExp   *time.Time `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
}

// Locked indica si la cuenta esta bloqueada en el instante dado.
func (a Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}

// IsAdmin reporta si la cuenta tiene rol administrador.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
