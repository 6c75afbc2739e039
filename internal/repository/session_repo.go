package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"admin-dash/internal/domain"
)

// SessionRepository define el contrato de persistencia para sesiones.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByToken(ctx context.Context, token string) (domain.Session, error)
	Touch(ctx context.Context, token string, at time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteByAccount(ctx context.Context, accountID string) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error)
}

// PgSessionRepository implementa SessionRepository usando pgxpool.
type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) error {
	const query = `
		INSERT INTO sessions (token, account_id, user_agent, ip, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		session.Token,
		session.AccountID,
		session.UserAgent,
		session.IP,
		session.CreatedAt,
		session.LastUsedAt,
	)
	return err
}

func (r *PgSessionRepository) GetByToken(ctx context.Context, token string) (domain.Session, error) {
	const query = `
		SELECT token, account_id, user_agent, ip, created_at, last_used_at
		FROM sessions
		WHERE token = $1
	`
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&s.Token,
		&s.AccountID,
		&s.UserAgent,
		&s.IP,
		&s.CreatedAt,
		&s.LastUsedAt,
	)
	return s, err
}

// Touch actualiza last_used_at solo de la sesión con ese token.
func (r *PgSessionRepository) Touch(ctx context.Context, token string, at time.Time) error {
	const query = `UPDATE sessions SET last_used_at = $2 WHERE token = $1`
	_, err := r.pool.Exec(ctx, query, token, at)
	return err
}

// Delete elimina exactamente esa sesión; es idempotente.
func (r *PgSessionRepository) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = $1`
	_, err := r.pool.Exec(ctx, query, token)
	return err
}

func (r *PgSessionRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	const query = `DELETE FROM sessions WHERE account_id = $1`
	_, err := r.pool.Exec(ctx, query, accountID)
	return err
}

func (r *PgSessionRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Session, error) {
	const query = `
		SELECT token, account_id, user_agent, ip, created_at, last_used_at
		FROM sessions
		WHERE account_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.Token, &s.AccountID, &s.UserAgent, &s.IP, &s.CreatedAt, &s.LastUsedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
