package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"admin-dash/internal/domain"
	"admin-dash/internal/service"
)

type stubSender struct {
	fail bool
}

func (s *stubSender) SendVerification(_ context.Context, _, _, _ string) error {
	if s.fail {
		return context.DeadlineExceeded
	}
	return nil
}

func (s *stubSender) SendPasswordReset(_ context.Context, _, _, _ string) error {
	if s.fail {
		return context.DeadlineExceeded
	}
	return nil
}

type handlerEnv struct {
	router   *gin.Engine
	accounts *mockAccountRepo
	sessions *mockSessionRepo
	tokens   *service.TokenService
}

func setupHandlerRouter(t *testing.T) handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	accounts := newMockAccountRepo()
	sessions := newMockSessionRepo()
	tokens := service.NewTokenService("test-secret", time.Hour)
	authServ := service.NewAuthService(zap.NewNop(), accounts, sessions, tokens, &stubSender{}, service.AuthConfig{
		FrontendURL: "http://localhost:3000",
	})
	authH := NewAuthHandler(zap.NewNop(), authServ)

	r := gin.New()
	auth := r.Group("/auth")
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)
		auth.POST("/oauth", authH.OAuthLogin)
		auth.POST("/forgot-password", authH.ForgotPassword)
		auth.POST("/reset-password", authH.ResetPassword)
		auth.POST("/verify-email", authH.VerifyEmail)
		auth.POST("/logout", SessionAuthMiddleware(sessions, accounts), authH.Logout)
		auth.GET("/me", AuthMiddleware(tokens, accounts), authH.Me)
		auth.GET("/sessions", AuthMiddleware(tokens, accounts), authH.Sessions)
	}
	return handlerEnv{router: r, accounts: accounts, sessions: sessions, tokens: tokens}
}

func performRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return payload
}

func seedPasswordAccount(t *testing.T, env handlerEnv, id, emailAddr, password string) {
	t.Helper()
	hash, err := service.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	env.accounts.put(domain.Account{
		ID:            id,
		Email:         emailAddr,
		PasswordHash:  hash,
		PasswordLogin: true,
		Role:          domain.RoleUser,
		IsActive:      true,
	})
}

func TestRegisterValidationDetails(t *testing.T) {
	env := setupHandlerRouter(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/register", gin.H{
		"name":     "x",
		"email":    "new@example.com",
		"password": "weak",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	payload := decodeBody(t, rec)
	if payload["error"] != "validation failed" {
		t.Fatalf("expected validation failed error, got %v", payload["error"])
	}
	details, ok := payload["details"].([]any)
	if !ok || len(details) < 2 {
		t.Fatalf("expected name and password details, got %v", payload["details"])
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := setupHandlerRouter(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/register", gin.H{
		"name":     "Nueva Cuenta",
		"email":    "flow@example.com",
		"password": "Passw0rd",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	payload := decodeBody(t, rec)
	if payload["access_token"] == "" || payload["access_token"] == nil {
		t.Fatalf("expected access token in register response")
	}
	if strings.Contains(rec.Body.String(), "Passw0rd") || strings.Contains(rec.Body.String(), "password_hash") {
		t.Fatalf("register response leaks password material: %s", rec.Body.String())
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", gin.H{
		"email":    "flow@example.com",
		"password": "Passw0rd",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	payload = decodeBody(t, rec)
	sessionToken, _ := payload["session_token"].(string)
	if sessionToken == "" {
		t.Fatalf("expected session token in login response")
	}

	rec = performRequest(env.router, http.MethodPost, "/auth/login", gin.H{
		"email":    "flow@example.com",
		"password": "Wrong0ne",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for bad password, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid credentials" {
		t.Fatalf("expected generic credentials error")
	}
}

func TestLoginLockoutResponse(t *testing.T) {
	env := setupHandlerRouter(t)
	seedPasswordAccount(t, env, "acc-1", "locked@example.com", "Passw0rd")

	for i := 0; i < 5; i++ {
		rec := performRequest(env.router, http.MethodPost, "/auth/login", gin.H{
			"email":    "locked@example.com",
			"password": "Wrong0ne",
		}, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", i+1, rec.Code)
		}
	}

	rec := performRequest(env.router, http.MethodPost, "/auth/login", gin.H{
		"email":    "locked@example.com",
		"password": "Passw0rd",
	}, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 while locked, got %d", rec.Code)
	}
	if !strings.Contains(decodeBody(t, rec)["error"].(string), "temporarily locked") {
		t.Fatalf("expected lockout message, got %s", rec.Body.String())
	}
}

func TestLogoutEndpoint(t *testing.T) {
	env := setupHandlerRouter(t)
	seedPasswordAccount(t, env, "acc-1", "out@example.com", "Passw0rd")

	rec := performRequest(env.router, http.MethodPost, "/auth/login", gin.H{
		"email":    "out@example.com",
		"password": "Passw0rd",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected status 200, got %d", rec.Code)
	}
	sessionToken := decodeBody(t, rec)["session_token"].(string)

	rec = performRequest(env.router, http.MethodPost, "/auth/logout", nil, sessionToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	// La sesión eliminada ya no autentica.
	rec = performRequest(env.router, http.MethodPost, "/auth/logout", nil, sessionToken)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 after logout, got %d", rec.Code)
	}
}

func TestForgotPasswordGenericResponse(t *testing.T) {
	env := setupHandlerRouter(t)
	seedPasswordAccount(t, env, "acc-1", "real@example.com", "Passw0rd")

	recKnown := performRequest(env.router, http.MethodPost, "/auth/forgot-password", gin.H{
		"email": "real@example.com",
	}, "")
	recUnknown := performRequest(env.router, http.MethodPost, "/auth/forgot-password", gin.H{
		"email": "ghost@example.com",
	}, "")

	if recKnown.Code != http.StatusOK || recUnknown.Code != http.StatusOK {
		t.Fatalf("expected status 200 for both, got %d and %d", recKnown.Code, recUnknown.Code)
	}
	if recKnown.Body.String() != recUnknown.Body.String() {
		t.Fatalf("responses must not reveal account existence")
	}
}

func TestResetPasswordInvalidToken(t *testing.T) {
	env := setupHandlerRouter(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/reset-password", gin.H{
		"token":    "deadbeef",
		"password": "Fresh0ne",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid or expired token" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestVerifyEmailInvalidToken(t *testing.T) {
	env := setupHandlerRouter(t)

	rec := performRequest(env.router, http.MethodPost, "/auth/verify-email", gin.H{
		"token": "deadbeef",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestMeEndpoint(t *testing.T) {
	env := setupHandlerRouter(t)
	seedPasswordAccount(t, env, "acc-1", "me@example.com", "Passw0rd")

	rec := performRequest(env.router, http.MethodGet, "/auth/me", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without token, got %d", rec.Code)
	}

	account, _ := env.accounts.GetByID(context.Background(), "acc-1")
	token, err := env.tokens.IssueAccess(account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec = performRequest(env.router, http.MethodGet, "/auth/me", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Fatalf("me response leaks password hash")
	}
}

func TestSessionsEndpoint(t *testing.T) {
	env := setupHandlerRouter(t)
	seedPasswordAccount(t, env, "acc-1", "list@example.com", "Passw0rd")

	for i := 0; i < 2; i++ {
		rec := performRequest(env.router, http.MethodPost, "/auth/login", gin.H{
			"email":    "list@example.com",
			"password": "Passw0rd",
		}, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("login %d: expected status 200, got %d", i+1, rec.Code)
		}
	}

	account, _ := env.accounts.GetByID(context.Background(), "acc-1")
	token, err := env.tokens.IssueAccess(account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := performRequest(env.router, http.MethodGet, "/auth/sessions", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	sessions, ok := payload["sessions"].([]any)
	if !ok || len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %v", payload["sessions"])
	}
	if strings.Contains(rec.Body.String(), `"token"`) {
		t.Fatalf("sessions response leaks raw tokens: %s", rec.Body.String())
	}
}
