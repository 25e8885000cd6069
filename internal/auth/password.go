package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/jongik-sv/kirosync/internal/errors"
)

// HashPassword returns a bcrypt hash of password for storage in
// UserStore.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
