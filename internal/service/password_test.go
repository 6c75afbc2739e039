package service

import "testing"

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "" || hash == "Secret1" {
		t.Fatalf("expected a digest distinct from the plaintext")
	}
	if !CheckPassword("Secret1", hash) {
		t.Fatalf("expected correct password to verify")
	}
	if CheckPassword("secret1", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPasswordSaltedPerCall(t *testing.T) {
	first, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashPassword("Secret1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if first == second {
		t.Fatalf("expected per-call salt to produce distinct digests")
	}
}

func TestCheckPasswordEmptyHash(t *testing.T) {
	if CheckPassword("Secret1", "") {
		t.Fatalf("expected empty hash to never verify")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErrs int
	}{
		{"valid", "Secret1", 0},
		{"too short", "Ab1", 1},
		{"no uppercase", "secret1", 1},
		{"no digit", "Secretx", 1},
		{"short and weak", "ab", 2},
		{"empty", "", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidatePassword("password", tc.password)
			if len(errs) != tc.wantErrs {
				t.Fatalf("expected %d errors, got %d: %v", tc.wantErrs, len(errs), errs)
			}
			for _, fe := range errs {
				if fe.Field != "password" {
					t.Fatalf("expected field name propagated, got %s", fe.Field)
				}
			}
		})
	}
}
