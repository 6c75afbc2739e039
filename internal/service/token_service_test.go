package service

import (
	"errors"
	"testing"
	"time"

	"admin-dash/internal/domain"
)

func testAccount() domain.Account {
	return domain.Account{
		ID:    "acc-1",
		Email: "ana@example.com",
		Role:  domain.RoleUser,
	}
}

func TestIssueAndParseAccess(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.IssueAccess(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.AccountID != "acc-1" || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseAccessExpired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	svc.accessTTL = -time.Minute

	token, err := svc.IssueAccess(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ParseAccess(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestParseAccessTampered(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	other := NewTokenService("other-secret", time.Hour)

	token, err := other.IssueAccess(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ParseAccess(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong signature, got %v", err)
	}
	if _, err := svc.ParseAccess("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for garbage, got %v", err)
	}
	if _, err := svc.ParseAccess(""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestNewOpaqueToken(t *testing.T) {
	first, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := NewOpaqueToken()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("expected 32 random bytes in hex, got len %d", len(first))
	}
	if first == second {
		t.Fatalf("expected distinct tokens")
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Fatalf("expected stable digest")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatalf("expected distinct digests for distinct tokens")
	}
	if HashToken("abc") == "abc" {
		t.Fatalf("digest must differ from the raw token")
	}
}
