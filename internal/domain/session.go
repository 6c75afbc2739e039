package domain

import "time"

// Session representa un dispositivo/sesion con login activo.
// El token es opaco y solo se valida contra el store.
type Session struct {
	Token      string    `json:"-"`
	AccountID  string    `json:"account_id"`
	UserAgent  string    `json:"user_agent,omitempty"`
	IP         string    `json:"ip,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}
