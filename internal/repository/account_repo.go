package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"admin-dash/internal/domain"
)

// AccountRepository define el contrato de persistencia para cuentas.
// Las operaciones de contadores y tokens son sentencias atómicas: nunca
// read-then-write en dos pasos.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByOAuth(ctx context.Context, provider, subject string) (domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]domain.Account, error)
	LinkOAuth(ctx context.Context, id, provider, subject, avatarURL string) error
	RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) error
	ClearLockout(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	SetVerifyToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	RedeemResetToken(ctx context.Context, tokenHash, newPasswordHash string) (domain.Account, error)
	RedeemVerifyToken(ctx context.Context, tokenHash string) (domain.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error
	SetActive(ctx context.Context, id string, active bool) error
	SetRole(ctx context.Context, id string, role domain.Role) error
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `id, email, display_name, avatar_url, role, password_hash, password_login,
	is_active, is_email_verified, oauth_provider, oauth_subject, failed_logins, locked_until,
	verify_token_hash, verify_token_expires, reset_token_hash, reset_token_expires,
	created_at, updated_at, last_login_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanAccount(row scannable) (domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.DisplayName,
		&a.AvatarURL,
		&a.Role,
		&a.PasswordHash,
		&a.PasswordLogin,
		&a.IsActive,
		&a.IsEmailVerified,
		&a.OAuthProvider,
		&a.OAuthSubject,
		&a.FailedLogins,
		&a.LockedUntil,
		&a.VerifyTokenHash,
		&a.VerifyTokenExp,
		&a.ResetTokenHash,
		&a.ResetTokenExp,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.LastLoginAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, email, display_name, avatar_url, role, password_hash,
			password_login, is_active, is_email_verified, oauth_provider, oauth_subject,
			verify_token_hash, verify_token_expires, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.DisplayName,
		account.AvatarURL,
		account.Role,
		account.PasswordHash,
		account.PasswordLogin,
		account.IsActive,
		account.IsEmailVerified,
		account.OAuthProvider,
		account.OAuthSubject,
		account.VerifyTokenHash,
		account.VerifyTokenExp,
		account.CreatedAt,
		account.UpdatedAt,
		account.LastLoginAt,
	)
	return err
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, email))
}

func (r *PgAccountRepository) GetByOAuth(ctx context.Context, provider, subject string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts
		WHERE oauth_provider = $1 AND oauth_subject = $2 AND oauth_subject <> ''`
	return scanAccount(r.pool.QueryRow(ctx, query, provider, subject))
}

func (r *PgAccountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *PgAccountRepository) LinkOAuth(ctx context.Context, id, provider, subject, avatarURL string) error {
	const query = `
		UPDATE accounts
		SET oauth_provider = $2, oauth_subject = $3,
			avatar_url = CASE WHEN $4 <> '' THEN $4 ELSE avatar_url END,
			is_email_verified = TRUE, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, provider, subject, avatarURL)
	return err
}

// RecordFailedLogin incrementa el contador en una sola sentencia y fija
// locked_until al alcanzar el umbral. El CASE evita lost updates bajo
// intentos concurrentes contra la misma cuenta.
func (r *PgAccountRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) error {
	const query = `
		UPDATE accounts
		SET failed_logins = failed_logins + 1,
			locked_until = CASE WHEN failed_logins + 1 >= $2 THEN $3 ELSE locked_until END,
			updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, threshold, lockUntil)
	return err
}

func (r *PgAccountRepository) ClearLockout(ctx context.Context, id string) error {
	const query = `
		UPDATE accounts
		SET failed_logins = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE accounts SET last_login_at = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgAccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET reset_token_hash = $2, reset_token_expires = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	return err
}

func (r *PgAccountRepository) SetVerifyToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	const query = `
		UPDATE accounts
		SET verify_token_hash = $2, verify_token_expires = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, tokenHash, expiresAt)
	return err
}

// RedeemResetToken aplica el nuevo hash y limpia el token en la misma
// sentencia condicional. Sin fila devuelta, el token no existe o expiró.
func (r *PgAccountRepository) RedeemResetToken(ctx context.Context, tokenHash, newPasswordHash string) (domain.Account, error) {
	const query = `
		UPDATE accounts
		SET password_hash = $2, password_login = TRUE,
			reset_token_hash = '', reset_token_expires = NULL, updated_at = now()
		WHERE reset_token_hash = $1 AND reset_token_hash <> '' AND reset_token_expires > now()
		RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, tokenHash, newPasswordHash))
}

func (r *PgAccountRepository) RedeemVerifyToken(ctx context.Context, tokenHash string) (domain.Account, error) {
	const query = `
		UPDATE accounts
		SET is_email_verified = TRUE,
			verify_token_hash = '', verify_token_expires = NULL, updated_at = now()
		WHERE verify_token_hash = $1 AND verify_token_hash <> '' AND verify_token_expires > now()
		RETURNING ` + accountColumns
	return scanAccount(r.pool.QueryRow(ctx, query, tokenHash))
}

func (r *PgAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE accounts
		SET password_hash = $2, password_login = TRUE, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, passwordHash)
	return err
}

func (r *PgAccountRepository) UpdateProfile(ctx context.Context, id, displayName, avatarURL string) error {
	const query = `
		UPDATE accounts
		SET display_name = $2, avatar_url = $3, updated_at = now()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, displayName, avatarURL)
	return err
}

func (r *PgAccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE accounts SET is_active = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, active)
	return err
}

func (r *PgAccountRepository) SetRole(ctx context.Context, id string, role domain.Role) error {
	const query = `UPDATE accounts SET role = $2, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id, role)
	return err
}
