package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"admin-dash/internal/domain"
	"admin-dash/internal/email"
	"admin-dash/internal/repository"
)

// AuthService coordina registro, login, lockout, sesiones y los flujos
// de tokens de verificación y reset.
type AuthService struct {
	logger      *zap.Logger
	accounts    repository.AccountRepository
	sessions    repository.SessionRepository
	tokens      *TokenService
	emailSender email.Sender
	cfg         AuthConfig
}

// AuthConfig agrupa los parámetros de política del servicio.
type AuthConfig struct {
	LockoutThreshold int
	LockoutWindow    time.Duration
	ResetTokenTTL    time.Duration
	VerifyTokenTTL   time.Duration
	FrontendURL      string
	EmailTimeout     time.Duration
}

var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrAccountLocked         = errors.New("account locked")
	ErrAccountDisabled       = errors.New("account disabled")
	ErrAccountNotFound       = errors.New("account not found")
	ErrEmailTaken            = errors.New("email already registered")
	ErrInvalidEmail          = errors.New("invalid email")
	ErrOAuthInvalid          = errors.New("oauth data invalid")
	ErrTokenInvalidOrExpired = errors.New("invalid or expired token")
	ErrPasswordMismatch      = errors.New("current password incorrect")
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrEmailSendFailure      = errors.New("email send failed")
)

func NewAuthService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	tokens *TokenService,
	emailSender email.Sender,
	cfg AuthConfig,
) *AuthService {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = 5
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = 15 * time.Minute
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = time.Hour
	}
	if cfg.VerifyTokenTTL <= 0 {
		cfg.VerifyTokenTTL = 24 * time.Hour
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = 10 * time.Second
	}
	return &AuthService{
		logger:      logger,
		accounts:    accounts,
		sessions:    sessions,
		tokens:      tokens,
		emailSender: emailSender,
		cfg:         cfg,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type RegisterResult struct {
	Account     domain.Account `json:"account"`
	AccessToken string         `json:"access_token"`
}

// Register crea la cuenta, deja pendiente la verificación de email y
// emite un access token. El fallo del correo no revierte el registro.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return RegisterResult{}, ErrInvalidEmail
	}

	passwordHash, err := HashPassword(input.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	rawToken, err := NewOpaqueToken()
	if err != nil {
		return RegisterResult{}, err
	}
	verifyExp := time.Now().UTC().Add(s.cfg.VerifyTokenTTL)

	now := time.Now().UTC()
	account := domain.Account{
		ID:              uuid.NewString(),
		Email:           emailAddr,
		DisplayName:     strings.TrimSpace(input.Name),
		Role:            domain.RoleUser,
		PasswordHash:    passwordHash,
		PasswordLogin:   true,
		IsActive:        true,
		VerifyTokenHash: HashToken(rawToken),
		VerifyTokenExp:  &verifyExp,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if isUniqueViolation(err) {
			return RegisterResult{}, ErrEmailTaken
		}
		return RegisterResult{}, err
	}

	if err := s.sendVerification(ctx, account, rawToken); err != nil {
		s.logger.Warn("send verification email failed",
			zap.Error(err), zap.String("account_id", account.ID))
	}

	accessToken, err := s.tokens.IssueAccess(account)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Account: account, AccessToken: accessToken}, nil
}

type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IP        string
}

type LoginResult struct {
	Account      domain.Account `json:"account"`
	AccessToken  string         `json:"access_token"`
	SessionToken string         `json:"session_token"`
}

// Login autentica por contraseña aplicando la máquina de lockout.
// Una cuenta bloqueada rechaza sin comparar hashes y sin extender la
// ventana de bloqueo.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (LoginResult, error) {
	emailAddr := normalizeEmail(input.Email)
	password := input.Password
	if emailAddr == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	now := time.Now().UTC()
	if account.Locked(now) {
		return LoginResult{}, ErrAccountLocked
	}
	if !account.IsActive {
		return LoginResult{}, ErrAccountDisabled
	}

	if !account.PasswordLogin || !CheckPassword(password, account.PasswordHash) {
		lockUntil := now.Add(s.cfg.LockoutWindow)
		if err := s.accounts.RecordFailedLogin(ctx, account.ID, s.cfg.LockoutThreshold, lockUntil); err != nil {
			return LoginResult{}, err
		}
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := s.accounts.ClearLockout(ctx, account.ID); err != nil {
		return LoginResult{}, err
	}
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return LoginResult{}, err
	}
	account.FailedLogins = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now

	sessionToken, err := NewOpaqueToken()
	if err != nil {
		return LoginResult{}, err
	}
	session := domain.Session{
		Token:      sessionToken,
		AccountID:  account.ID,
		UserAgent:  input.UserAgent,
		IP:         input.IP,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return LoginResult{}, err
	}

	accessToken, err := s.tokens.IssueAccess(account)
	if err != nil {
		return LoginResult{}, err
	}

	s.logger.Info("login successful",
		zap.String("account_id", account.ID), zap.String("client_ip", input.IP))
	return LoginResult{
		Account:      account,
		AccessToken:  accessToken,
		SessionToken: sessionToken,
	}, nil
}

// FederatedClaim es la identidad ya verificada por el proveedor externo.
type FederatedClaim struct {
	Provider    string
	Subject     string
	Email       string
	DisplayName string
	AvatarURL   string
}

// FederatedLogin reconcilia la identidad externa con una cuenta local:
// crea, enlaza o solo registra el último login. Siempre emite un access
// token nuevo.
func (s *AuthService) FederatedLogin(ctx context.Context, claim FederatedClaim) (RegisterResult, error) {
	provider := strings.ToLower(strings.TrimSpace(claim.Provider))
	subject := strings.TrimSpace(claim.Subject)
	emailAddr := normalizeEmail(claim.Email)
	if provider == "" || subject == "" {
		return RegisterResult{}, ErrOAuthInvalid
	}

	now := time.Now().UTC()

	account, err := s.accounts.GetByOAuth(ctx, provider, subject)
	if err == nil {
		if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
			return RegisterResult{}, err
		}
		account.LastLoginAt = &now
		return s.federatedResult(account)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return RegisterResult{}, err
	}

	if emailAddr != "" {
		existing, err := s.accounts.GetByEmail(ctx, emailAddr)
		if err == nil {
			// Enlaza la identidad conservando contraseña y rol locales.
			if err := s.accounts.LinkOAuth(ctx, existing.ID, provider, subject, claim.AvatarURL); err != nil {
				return RegisterResult{}, err
			}
			if err := s.accounts.UpdateLastLogin(ctx, existing.ID, now); err != nil {
				return RegisterResult{}, err
			}
			existing.OAuthProvider = provider
			existing.OAuthSubject = subject
			existing.IsEmailVerified = true
			if claim.AvatarURL != "" {
				existing.AvatarURL = claim.AvatarURL
			}
			existing.LastLoginAt = &now
			return s.federatedResult(existing)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return RegisterResult{}, err
		}
	}

	// Placeholder aleatorio: la cuenta existe sin contraseña usable.
	placeholder, err := NewOpaqueToken()
	if err != nil {
		return RegisterResult{}, err
	}
	placeholderHash, err := HashPassword(placeholder)
	if err != nil {
		return RegisterResult{}, err
	}

	account = domain.Account{
		ID:              uuid.NewString(),
		Email:           emailAddr,
		DisplayName:     strings.TrimSpace(claim.DisplayName),
		AvatarURL:       claim.AvatarURL,
		Role:            domain.RoleUser,
		PasswordHash:    placeholderHash,
		PasswordLogin:   false,
		IsActive:        true,
		IsEmailVerified: true,
		OAuthProvider:   provider,
		OAuthSubject:    subject,
		CreatedAt:       now,
		UpdatedAt:       now,
		LastLoginAt:     &now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if isUniqueViolation(err) {
			return RegisterResult{}, ErrEmailTaken
		}
		return RegisterResult{}, err
	}
	return s.federatedResult(account)
}

func (s *AuthService) federatedResult(account domain.Account) (RegisterResult, error) {
	accessToken, err := s.tokens.IssueAccess(account)
	if err != nil {
		return RegisterResult{}, err
	}
	return RegisterResult{Account: account, AccessToken: accessToken}, nil
}

// Logout elimina exactamente esa sesión; es idempotente.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	if strings.TrimSpace(sessionToken) == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionToken)
}

// RequestPasswordReset responde igual exista o no la cuenta, para no
// permitir enumeración. Un token nuevo invalida el anterior.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}

	account, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	rawToken, err := NewOpaqueToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.cfg.ResetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, HashToken(rawToken), expiresAt); err != nil {
		return err
	}

	link := s.cfg.FrontendURL + "/reset-password?token=" + rawToken
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
	defer cancel()
	if err := s.emailSender.SendPasswordReset(sendCtx, account.Email, account.DisplayName, link); err != nil {
		s.logger.Warn("send password reset email failed",
			zap.Error(err), zap.String("account_id", account.ID))
		return ErrEmailSendFailure
	}
	return nil
}

// ResetPassword canjea el token: aplicar la nueva contraseña y limpiar el
// token ocurren en la misma mutación. Nunca revela qué mitad falló.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) (domain.Account, error) {
	if strings.TrimSpace(rawToken) == "" {
		return domain.Account{}, ErrTokenInvalidOrExpired
	}
	newHash, err := HashPassword(newPassword)
	if err != nil {
		return domain.Account{}, err
	}
	account, err := s.accounts.RedeemResetToken(ctx, HashToken(rawToken), newHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrTokenInvalidOrExpired
		}
		return domain.Account{}, err
	}
	s.logger.Info("password reset successful", zap.String("account_id", account.ID))
	return account, nil
}

// ChangePassword exige la contraseña actual antes de aplicar la nueva.
func (s *AuthService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if !account.PasswordLogin || !CheckPassword(currentPassword, account.PasswordHash) {
		return ErrPasswordMismatch
	}
	newHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.accounts.UpdatePassword(ctx, account.ID, newHash)
}

// RequestEmailVerification reemite el token de verificación. Aquí el
// envío del correo es el propósito de la operación, así que su fallo se
// propaga.
func (s *AuthService) RequestEmailVerification(ctx context.Context, accountID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if account.IsEmailVerified {
		return ErrAlreadyVerified
	}

	rawToken, err := NewOpaqueToken()
	if err != nil {
		return err
	}
	expiresAt := time.Now().UTC().Add(s.cfg.VerifyTokenTTL)
	if err := s.accounts.SetVerifyToken(ctx, account.ID, HashToken(rawToken), expiresAt); err != nil {
		return err
	}
	if err := s.sendVerification(ctx, account, rawToken); err != nil {
		return ErrEmailSendFailure
	}
	return nil
}

// VerifyEmail canjea el token de verificación una única vez.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (domain.Account, error) {
	if strings.TrimSpace(rawToken) == "" {
		return domain.Account{}, ErrTokenInvalidOrExpired
	}
	account, err := s.accounts.RedeemVerifyToken(ctx, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrTokenInvalidOrExpired
		}
		return domain.Account{}, err
	}
	s.logger.Info("email verified", zap.String("account_id", account.ID))
	return account, nil
}

func (s *AuthService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, err
	}
	return account, nil
}

func (s *AuthService) ListAccounts(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.accounts.List(ctx, limit, offset)
}

func (s *AuthService) UpdateProfile(ctx context.Context, id, displayName, avatarURL string) (domain.Account, error) {
	if err := s.accounts.UpdateProfile(ctx, id, strings.TrimSpace(displayName), strings.TrimSpace(avatarURL)); err != nil {
		return domain.Account{}, err
	}
	return s.GetAccount(ctx, id)
}

// SetAccountActive inhabilita o rehabilita el login (soft-disable).
// Las cuentas nunca se borran desde este subsistema.
func (s *AuthService) SetAccountActive(ctx context.Context, id string, active bool) error {
	if err := s.accounts.SetActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		// Sin sesiones vivas para una cuenta deshabilitada.
		return s.sessions.DeleteByAccount(ctx, id)
	}
	return nil
}

func (s *AuthService) SetAccountRole(ctx context.Context, id string, role domain.Role) error {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return errors.New("unknown role")
	}
	return s.accounts.SetRole(ctx, id, role)
}

func (s *AuthService) ListSessions(ctx context.Context, accountID string) ([]domain.Session, error) {
	return s.sessions.ListByAccount(ctx, accountID)
}

func (s *AuthService) sendVerification(ctx context.Context, account domain.Account, rawToken string) error {
	link := s.cfg.FrontendURL + "/verify-email?token=" + rawToken
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.EmailTimeout)
	defer cancel()
	return s.emailSender.SendVerification(sendCtx, account.Email, account.DisplayName, link)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
