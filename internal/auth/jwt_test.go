package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager("test-secret", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken(Claims{UserID: "u1", Email: "a@example.com", SessionID: "s1"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@example.com" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	m1, _ := NewJWTManager("secret-one", time.Minute, time.Hour)
	m2, _ := NewJWTManager("secret-two", time.Minute, time.Hour)

	token, _ := m1.GenerateToken(Claims{UserID: "u1"})
	if _, err := m2.ValidateToken(token); err == nil {
		t.Fatalf("expected validation to fail with a different secret")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	// NewJWTManager replaces a non-positive expiry with its default, so the
	// manager is built directly to issue an already-expired token.
	m := &JWTManager{secret: []byte("secret"), tokenExpiry: -time.Minute, refreshExpiry: time.Hour}
	token, err := m.GenerateToken(Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Fatalf("expected validation to fail for an expired token")
	}
}

func TestGenerateSecretWhenEmpty(t *testing.T) {
	m, err := NewJWTManager("", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	if len(m.secret) == 0 {
		t.Fatalf("expected a generated secret")
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatalf("expected matching password to check out")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatalf("expected mismatched password to fail")
	}
}
