// Package auth implements JWT-based authentication (SPEC_FULL.md §6),
// grounded on the teacher's top-level auth package (auth/jwt.go,
// auth/store.go) rather than its server/auth WebAuthn passkey flow, which
// has no analogue in spec.md's username/password user model.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// Claims is the subset of a validated token the rest of the application
// cares about.
type Claims struct {
	UserID    string
	Email     string
	SessionID string
}

// jwtClaims is the wire shape signed into the token.
type jwtClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	SessionID string `json:"sid"`
}

// JWTManager issues and validates HS256 access tokens and opaque refresh
// tokens.
type JWTManager struct {
	secret        []byte
	tokenExpiry   time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager builds a JWTManager. If secret is empty a secure random one
// is generated — fine for a single-process dev run, but a multi-instance
// deployment must set config.Auth.JWTSecret explicitly so every instance
// validates the same tokens.
func NewJWTManager(secret string, tokenExpiry, refreshExpiry time.Duration) (*JWTManager, error) {
	if secret == "" {
		generated, err := generateSecureSecret(32)
		if err != nil {
			return nil, errors.Wrap(err, "generate JWT secret")
		}
		secret = generated
	}
	if tokenExpiry <= 0 {
		tokenExpiry = 15 * time.Minute
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 30 * 24 * time.Hour
	}
	return &JWTManager{
		secret:        []byte(secret),
		tokenExpiry:   tokenExpiry,
		refreshExpiry: refreshExpiry,
	}, nil
}

// GenerateToken signs a new access token for claims.
func (m *JWTManager) GenerateToken(claims Claims) (string, error) {
	now := time.Now()
	wire := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "kirosync",
		},
		UserID:    claims.UserID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	return token.SignedString(m.secret)
}

// ValidateToken parses and verifies tokenString, returning its claims.
func (m *JWTManager) ValidateToken(tokenString string) (Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return Claims{}, errors.Wrap(err, "invalid token")
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return Claims{}, errors.New("invalid token claims")
	}
	return Claims{UserID: claims.UserID, Email: claims.Email, SessionID: claims.SessionID}, nil
}

// GenerateRefreshToken returns a cryptographically random opaque token.
func (m *JWTManager) GenerateRefreshToken() (string, error) {
	return generateSecureSecret(32)
}

// TokenExpiry returns the configured access-token lifetime.
func (m *JWTManager) TokenExpiry() time.Duration { return m.tokenExpiry }

// RefreshExpiry returns the configured refresh-token lifetime.
func (m *JWTManager) RefreshExpiry() time.Duration { return m.refreshExpiry }

func generateSecureSecret(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate random bytes")
	}
	return hex.EncodeToString(b), nil
}
